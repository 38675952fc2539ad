// Package config provides the informer's configuration structures
package config

import (
	"fmt"
	"time"
)

// InformerConfig holds everything the informer reads at startup.
type InformerConfig struct {
	AccountID      int64         `yaml:"account_id" json:"account_id" mapstructure:"account_id"`
	KeywordRefresh time.Duration `yaml:"keyword_refresh" json:"keyword_refresh" mapstructure:"keyword_refresh"` // How often the keyword refresh hook runs

	Telegram TelegramConfig `yaml:"telegram" json:"telegram" mapstructure:"telegram"`
	Database DatabaseConfig `yaml:"database" json:"database" mapstructure:"database"`
	Crawl    CrawlConfig    `yaml:"crawl" json:"crawl" mapstructure:"crawl"`
	Scraper  ScraperConfig  `yaml:"scraper" json:"scraper" mapstructure:"scraper"`
	Notify   NotifyConfig   `yaml:"notify" json:"notify" mapstructure:"notify"`
	Log      LogConfig      `yaml:"log" json:"log" mapstructure:"log"`
	Initial  InitialConfig  `yaml:"initial" json:"initial" mapstructure:"initial"`
}

// TelegramConfig configures the TDLib sessions
type TelegramConfig struct {
	APIID       int    `yaml:"api_id" json:"api_id,omitempty" mapstructure:"api_id"`
	APIHash     string `yaml:"api_hash" json:"api_hash,omitempty" mapstructure:"api_hash"`
	PhoneNumber string `yaml:"phone_number" json:"phone_number,omitempty" mapstructure:"phone_number"`
	PhoneCode   string `yaml:"phone_code" json:"phone_code,omitempty" mapstructure:"phone_code"`
	StorageRoot string `yaml:"storage_root" json:"storage_root" mapstructure:"storage_root"` // Parent of the per-session TDLib directories
	Verbosity   int    `yaml:"verbosity" json:"verbosity" mapstructure:"verbosity"`          // TDLib log verbosity
}

// DatabaseConfig selects the relational store
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"` // "sqlite" or "pgx"
	DSN    string `yaml:"dsn" json:"dsn" mapstructure:"dsn"`
}

// CrawlConfig controls discovery, joining and pacing
type CrawlConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	JoinMin        time.Duration `yaml:"join_min" json:"join_min" mapstructure:"join_min"`                      // Lower bound of the delay between joins
	JoinMax        time.Duration `yaml:"join_max" json:"join_max" mapstructure:"join_max"`                      // Upper bound of the delay between joins
	ScrapeInterval time.Duration `yaml:"scrape_interval" json:"scrape_interval" mapstructure:"scrape_interval"` // Delay after each backfilled message
	CacheTTL       time.Duration `yaml:"cache_ttl" json:"cache_ttl" mapstructure:"cache_ttl"`
	Capacity       int           `yaml:"capacity" json:"capacity" mapstructure:"capacity"` // Conversations one account may track
	DialogLimit    int           `yaml:"dialog_limit" json:"dialog_limit" mapstructure:"dialog_limit"`
}

// ScraperConfig controls the background history scraper
type ScraperConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	SharedSession bool `yaml:"shared_session" json:"shared_session" mapstructure:"shared_session"` // Reuse the primary TDLib session instead of a second one
}

// NotifyConfig enables and configures the notification sinks
type NotifyConfig struct {
	Telegram TelegramSinkConfig `yaml:"telegram" json:"telegram" mapstructure:"telegram"`
	Sheets   SheetsSinkConfig   `yaml:"sheets" json:"sheets" mapstructure:"sheets"`
	SQL      SQLSinkConfig      `yaml:"sql" json:"sql" mapstructure:"sql"`
	Log      LogSinkConfig      `yaml:"log" json:"log" mapstructure:"log"`
	PubSub   PubSubSinkConfig   `yaml:"pubsub" json:"pubsub" mapstructure:"pubsub"`
}

// TelegramSinkConfig configures the live chat alert
type TelegramSinkConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	MonitorChatID int64  `yaml:"monitor_chat_id" json:"monitor_chat_id" mapstructure:"monitor_chat_id"`
	BotToken      string `yaml:"bot_token" json:"bot_token,omitempty" mapstructure:"bot_token"` // When set alerts go through the Bot API
}

// SheetsSinkConfig configures the spreadsheet sink
type SheetsSinkConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	SpreadsheetID   string `yaml:"spreadsheet_id" json:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Range           string `yaml:"range" json:"range" mapstructure:"range"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file" mapstructure:"credentials_file"`
}

// SQLSinkConfig configures the relational sink
type SQLSinkConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// LogSinkConfig configures the structured log sink
type LogSinkConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
}

// PubSubSinkConfig configures the Dapr pub/sub sink
type PubSubSinkConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Component string `yaml:"component" json:"component" mapstructure:"component"` // Name of the Dapr pubsub component
	Topic     string `yaml:"topic" json:"topic" mapstructure:"topic"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty" mapstructure:"pretty"`
}

// InitialConfig is the seed data used by build-database
type InitialConfig struct {
	Account            InitialAccount `yaml:"account" json:"account" mapstructure:"account"`
	Channel            InitialChannel `yaml:"channel" json:"channel" mapstructure:"channel"`
	ChannelsFile       string         `yaml:"channels_file" json:"channels_file" mapstructure:"channels_file"`
	KeywordsFile       string         `yaml:"keywords_file" json:"keywords_file" mapstructure:"keywords_file"`
	MonitorsPerAccount int            `yaml:"monitors_per_account" json:"monitors_per_account" mapstructure:"monitors_per_account"`
}

// InitialAccount describes the account row to seed
type InitialAccount struct {
	ID        int64  `yaml:"id" json:"id" mapstructure:"id"`
	APIID     string `yaml:"api_id" json:"api_id" mapstructure:"api_id"`
	APIHash   string `yaml:"api_hash" json:"api_hash,omitempty" mapstructure:"api_hash"`
	FirstName string `yaml:"first_name" json:"first_name" mapstructure:"first_name"`
	LastName  string `yaml:"last_name" json:"last_name" mapstructure:"last_name"`
	Username  string `yaml:"username" json:"username" mapstructure:"username"`
	Phone     string `yaml:"phone" json:"phone" mapstructure:"phone"`
}

// InitialChannel is an optional single channel to seed from config
type InitialChannel struct {
	UseInitial bool   `yaml:"use_initial" json:"use_initial" mapstructure:"use_initial"`
	Name       string `yaml:"name" json:"name" mapstructure:"name"`
	ID         int64  `yaml:"id" json:"id" mapstructure:"id"`
	URL        string `yaml:"url" json:"url" mapstructure:"url"`
	IsPrivate  bool   `yaml:"is_private" json:"is_private" mapstructure:"is_private"`
}

// DefaultInformerConfig returns a configuration with sensible defaults
func DefaultInformerConfig() *InformerConfig {
	return &InformerConfig{
		KeywordRefresh: 15 * time.Minute,
		Telegram: TelegramConfig{
			StorageRoot: ".",
			Verbosity:   1,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "informer.db",
		},
		Crawl: CrawlConfig{
			Enabled:        true,
			JoinMin:        30 * time.Second,
			JoinMax:        120 * time.Second,
			ScrapeInterval: 4 * time.Second,
			CacheTTL:       3 * time.Hour,
			Capacity:       500,
			DialogLimit:    1000,
		},
		Scraper: ScraperConfig{
			Enabled: true,
		},
		Notify: NotifyConfig{
			Telegram: TelegramSinkConfig{},
			Sheets:   SheetsSinkConfig{Range: "Sheet1!A1"},
			SQL:      SQLSinkConfig{Enabled: true},
			Log:      LogSinkConfig{Path: "notifications.jsonl"},
			PubSub:   PubSubSinkConfig{Component: "pubsub", Topic: "informer-notifications"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Initial: InitialConfig{
			ChannelsFile:       "initial/channels.csv",
			KeywordsFile:       "initial/keywords.yaml",
			MonitorsPerAccount: 500,
		},
	}
}

// Validate checks if the configuration is valid
func (c *InformerConfig) Validate() error {
	validDrivers := map[string]bool{
		"sqlite": true,
		"pgx":    true,
	}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database driver '%s', must be one of: sqlite, pgx", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn cannot be empty")
	}

	if c.Crawl.JoinMin < 0 {
		return fmt.Errorf("crawl.join_min cannot be negative")
	}
	if c.Crawl.JoinMax < c.Crawl.JoinMin {
		return fmt.Errorf("crawl.join_max must not be less than crawl.join_min")
	}
	if c.Crawl.ScrapeInterval < 0 {
		return fmt.Errorf("crawl.scrape_interval cannot be negative")
	}
	if c.Crawl.CacheTTL <= 0 {
		return fmt.Errorf("crawl.cache_ttl must be positive")
	}
	if c.Crawl.Capacity < 1 {
		return fmt.Errorf("crawl.capacity must be at least 1")
	}
	if c.KeywordRefresh <= 0 {
		return fmt.Errorf("keyword_refresh must be positive")
	}

	if c.Notify.Telegram.Enabled && c.Notify.Telegram.MonitorChatID == 0 {
		return fmt.Errorf("notify.telegram requires monitor_chat_id")
	}
	if c.Notify.Sheets.Enabled {
		if c.Notify.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("notify.sheets requires spreadsheet_id")
		}
		if c.Notify.Sheets.CredentialsFile == "" {
			return fmt.Errorf("notify.sheets requires credentials_file")
		}
	}
	if c.Notify.Log.Enabled && c.Notify.Log.Path == "" {
		return fmt.Errorf("notify.log requires path")
	}
	if c.Notify.PubSub.Enabled && (c.Notify.PubSub.Component == "" || c.Notify.PubSub.Topic == "") {
		return fmt.Errorf("notify.pubsub requires component and topic")
	}

	return nil
}

// ValidateForRun adds the checks that only matter when the informer runs
// against Telegram, as opposed to seeding the database.
func (c *InformerConfig) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AccountID == 0 {
		return fmt.Errorf("account_id must be set")
	}
	return nil
}

// SinkNames returns the names of the enabled notification sinks
func (c *InformerConfig) SinkNames() []string {
	var names []string
	if c.Notify.Telegram.Enabled {
		names = append(names, "telegram")
	}
	if c.Notify.Sheets.Enabled {
		names = append(names, "sheets")
	}
	if c.Notify.SQL.Enabled {
		names = append(names, "sql")
	}
	if c.Notify.Log.Enabled {
		names = append(names, "log")
	}
	if c.Notify.PubSub.Enabled {
		names = append(names, "pubsub")
	}
	return names
}
