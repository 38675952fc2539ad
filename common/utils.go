package common

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// GenerateRunID generates an identifier for one informer run based on the
// current timestamp, formatted as "YYYYMMDDHHMMSS".
func GenerateRunID() string {
	return time.Now().Format("20060102150405")
}

// IsRemote reports whether path is an http(s) URL rather than a local file.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// DownloadURLFile downloads a file from a URL and saves it to a temporary location.
// Returns the path to the downloaded file and any error encountered.
func DownloadURLFile(url string) (string, error) {
	log.Info().Str("url", url).Msg("Downloading seed file")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 Telegram-Informer/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	filename := filepath.Join(os.TempDir(), fmt.Sprintf("seed_%s%s", GenerateRunID(), filepath.Ext(url)))
	out, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write to file: %w", err)
	}

	log.Info().Str("file", filename).Msg("Seed file downloaded successfully")
	return filename, nil
}

// LocalPath returns a readable local path for path, downloading it first
// when it is a URL.
func LocalPath(path string) (string, error) {
	if IsRemote(path) {
		return DownloadURLFile(path)
	}
	return path, nil
}

// ReadChannelsCSV reads name,url rows from a channels file. The first row is
// a header and is skipped. Rows without a URL are ignored.
func ReadChannelsCSV(filename string) ([]model.ConversationSeed, error) {
	log.Debug().Str("filename", filename).Msg("Reading channels from file")

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open channels file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var channels []model.ConversationSeed
	header := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse channels file: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		channels = append(channels, model.ConversationSeed{
			Name: strings.TrimSpace(row[0]),
			URL:  strings.TrimSpace(row[1]),
		})
	}

	log.Debug().Int("channel_count", len(channels)).Msg("Channels read from file")
	return channels, nil
}

// keywordsFile is the layout of the keywords seed file.
type keywordsFile struct {
	Keywords []model.KeywordRule `yaml:"keywords"`
}

// ReadKeywordsFile reads the keyword rules of a YAML seed file:
//
//	keywords:
//	  - label: ransomware
//	    pattern: "ransom(ware)?"
func ReadKeywordsFile(filename string) ([]model.KeywordRule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}

	var parsed keywordsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file: %w", err)
	}

	var rules []model.KeywordRule
	for _, rule := range parsed.Keywords {
		if strings.TrimSpace(rule.Pattern) == "" {
			log.Warn().Str("label", rule.Label).Msg("Skipping keyword without pattern")
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
