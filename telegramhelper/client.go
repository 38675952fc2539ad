package telegramhelper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/config"
	"github.com/researchaccelerator-hub/telegram-informer/crawler"
	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// Session names. Each session keeps its own TDLib database directory so the
// background scraper can log in alongside the foreground listener.
const (
	PrimarySession = "primary"
	ScraperSession = "scraper"
)

// TelegramService defines an interface for creating authenticated Telegram
// sessions. Tests substitute fakes; production uses RealTelegramService.
type TelegramService interface {
	// InitializeClient creates and authenticates the TDLib client for the
	// named session.
	InitializeClient(session string) (*client.Client, error)

	// GetMe retrieves information about the authenticated user.
	GetMe(libClient crawler.TDLibClient) (*client.User, error)
}

// RealTelegramService authenticates against Telegram with TDLib. Sessions are
// stored under <storage_root>/state/<session>/.tdlib.
type RealTelegramService struct {
	cfg     config.TelegramConfig
	timeout time.Duration
}

// NewTelegramService creates a service for the given settings.
func NewTelegramService(cfg config.TelegramConfig) *RealTelegramService {
	return &RealTelegramService{cfg: cfg, timeout: 30 * time.Second}
}

// WithTimeout overrides how long InitializeClient waits for authorization.
// Interactive first logins need longer than the default 30 seconds.
func (s *RealTelegramService) WithTimeout(d time.Duration) *RealTelegramService {
	s.timeout = d
	return s
}

// Credentials stores Telegram API authentication details. It is read from
// .tdlib/credentials.json when present.
type Credentials struct {
	APIId       string `json:"api_id"`       // Telegram API ID obtained from developer portal
	APIHash     string `json:"api_hash"`     // Telegram API hash obtained from developer portal
	PhoneNumber string `json:"phone_number"` // User's phone number in international format
	PhoneCode   string `json:"phone_code"`   // One-time code received via SMS or Telegram
}

// readCredentials loads credentials from .tdlib/credentials.json in the
// working directory.
func readCredentials() (*Credentials, error) {
	credsPath := filepath.Join(".tdlib", "credentials.json")

	if _, err := os.Stat(credsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("credentials file not found at %s", credsPath)
	}

	data, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}

	return &creds, nil
}

// resolveCredentials picks the credentials to log in with: the config
// first, then the credentials file, then TG_* environment variables.
func (s *RealTelegramService) resolveCredentials() (*Credentials, error) {
	if s.cfg.APIID != 0 && s.cfg.APIHash != "" {
		log.Info().Msg("Using API credentials from configuration")
		return &Credentials{
			APIId:       strconv.Itoa(s.cfg.APIID),
			APIHash:     s.cfg.APIHash,
			PhoneNumber: s.cfg.PhoneNumber,
			PhoneCode:   s.cfg.PhoneCode,
		}, nil
	}

	creds, err := readCredentials()
	if err == nil && creds != nil {
		log.Info().Msg("Using API credentials from stored file")
		return creds, nil
	}

	log.Info().Msg("Using API credentials from environment variables")
	creds = &Credentials{
		APIId:       os.Getenv("TG_API_ID"),
		APIHash:     os.Getenv("TG_API_HASH"),
		PhoneNumber: os.Getenv("TG_PHONE_NUMBER"),
		PhoneCode:   os.Getenv("TG_PHONE_CODE"),
	}
	if creds.APIId == "" || creds.APIHash == "" {
		return nil, fmt.Errorf("no Telegram API credentials found in config, .tdlib/credentials.json or TG_API_ID/TG_API_HASH")
	}
	return creds, nil
}

// SetupAuth exports the phone number and code for the TDLib CLI interactor.
// Empty values leave any existing environment untouched.
func SetupAuth(phoneNumber, phoneCode string) {
	if phoneNumber != "" {
		os.Setenv("TG_PHONE_NUMBER", phoneNumber)
		log.Debug().
			Str("phone_number_masked", maskPhoneNumber(phoneNumber)).
			Msg("Set TG_PHONE_NUMBER environment variable for authentication")
	}
	if phoneCode != "" {
		os.Setenv("TG_PHONE_CODE", phoneCode)
		log.Debug().Msg("Set TG_PHONE_CODE environment variable for authentication")
	}
}

// maskPhoneNumber hides most digits of a phone number for security in logs
func maskPhoneNumber(phoneNumber string) string {
	if len(phoneNumber) <= 4 {
		return "***"
	}

	// keep the country code and the last two digits
	visiblePrefix := 3
	if len(phoneNumber) > 10 {
		visiblePrefix = 4
	}

	masked := phoneNumber[:visiblePrefix]
	for i := visiblePrefix; i < len(phoneNumber)-2; i++ {
		masked += "*"
	}
	masked += phoneNumber[len(phoneNumber)-2:]

	return masked
}

// SessionDirs returns the TDLib database and files directories of a session.
func SessionDirs(storageRoot, session string) (dbDir, filesDir string) {
	base := filepath.Join(storageRoot, "state", session, ".tdlib")
	return filepath.Join(base, "database"), filepath.Join(base, "files")
}

// InitializeClient creates the TDLib client for session and waits for it to
// become authorized. Authentication prompts go through the CLI interactor;
// a session that has logged in before reuses its database and skips them.
func (s *RealTelegramService) InitializeClient(session string) (*client.Client, error) {
	creds, err := s.resolveCredentials()
	if err != nil {
		return nil, err
	}
	apiID, err := strconv.Atoi(creds.APIId)
	if err != nil {
		return nil, fmt.Errorf("invalid API ID: %w", err)
	}

	dbDir, filesDir := SessionDirs(s.cfg.StorageRoot, session)
	for _, dir := range []string{dbDir, filesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	log.Info().Str("session", session).Msgf("Using TDLib database directory: %s", dbDir)

	authorizer := client.ClientAuthorizer()
	authorizer.TdlibParameters <- &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   dbDir,
		FilesDirectory:      filesDir,
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               int32(apiID),
		ApiHash:             creds.APIHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	}

	SetupAuth(creds.PhoneNumber, creds.PhoneCode)
	go client.CliInteractor(authorizer)

	_, err = client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: int32(s.cfg.Verbosity),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to set TDLib log verbosity")
	}

	clientReady := make(chan *client.Client, 1)
	errChan := make(chan error, 1)

	go func() {
		tdlibClient, err := client.NewClient(authorizer)
		if err != nil {
			errChan <- fmt.Errorf("failed to initialize TDLib client: %w", err)
			return
		}
		clientReady <- tdlibClient
	}()

	select {
	case tdlibClient := <-clientReady:
		log.Info().Str("session", session).Msg("Client initialized successfully")
		return tdlibClient, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(s.timeout):
		return nil, fmt.Errorf("timeout initializing TDLib client for session %s", session)
	}
}

// GetMe retrieves the authenticated Telegram user
func (s *RealTelegramService) GetMe(tdlibClient crawler.TDLibClient) (*client.User, error) {
	user, err := tdlibClient.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve authenticated user: %w", ClassifyError(err))
	}
	log.Info().Int64("user_id", user.Id).Msgf("Logged in as: %s %s", user.FirstName, user.LastName)
	return user, nil
}

// CloseClient closes a TDLib client, logging rather than returning failures.
func CloseClient(tdlibClient crawler.TDLibClient) {
	if tdlibClient == nil {
		return
	}
	if _, err := tdlibClient.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing TDLib client")
		return
	}
	log.Info().Msg("TDLib client closed")
}
