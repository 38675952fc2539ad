package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the informer reads, for
// example INFORMER_CRAWL_ENABLED.
const EnvPrefix = "INFORMER"

// Load builds the configuration from the defaults, an optional config file,
// the environment and any flags already bound to v, in increasing order of
// precedence.
func Load(v *viper.Viper, path string) (*InformerConfig, error) {
	defaults, err := yaml.Marshal(DefaultInformerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode default config: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			v.SetConfigType(ext)
		}
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &InformerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Dump renders cfg as YAML with secrets masked.
func Dump(cfg *InformerConfig) ([]byte, error) {
	masked := *cfg
	masked.Telegram.APIHash = mask(masked.Telegram.APIHash)
	masked.Telegram.PhoneCode = mask(masked.Telegram.PhoneCode)
	masked.Notify.Telegram.BotToken = mask(masked.Notify.Telegram.BotToken)
	masked.Initial.Account.APIHash = mask(masked.Initial.Account.APIHash)
	masked.Database.DSN = maskDSN(masked.Database.DSN)
	return yaml.Marshal(&masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// maskDSN hides the password of a URL-style DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
