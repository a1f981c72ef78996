package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingVariable is returned when a required environment variable is empty.
var ErrMissingVariable = errors.New("required environment variable is not set")

// AppConfig holds all configuration for the application
type AppConfig struct {
	NotionToken             string
	NotionDatabaseID        string
	NotionVersion           string
	NotionBaseURL           string
	NotionRequestsPerSecond float64
	WebhookURL              string

	DryRun              bool
	DeliverySettleDelay time.Duration // wait after webhook delivery before writing back
	HTTPTimeout         time.Duration
	RunTimeout          time.Duration
	CoachLinksFile      string
	CronSpecFollowUp    string

	DatabaseURL     string // optional run ledger
	TelegramToken   string // optional operator bot
	AdminTelegramID int64

	LogLevel    string
	Environment string
	LogFile     string
}

// TelegramEnabled reports whether the operator bot is configured.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.AdminTelegramID != 0
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	for _, req := range []struct {
		name string
		dst  *string
	}{
		{"NOTION_TOKEN", &cfg.NotionToken},
		{"NOTION_DATABASE_ID", &cfg.NotionDatabaseID},
		{"ZAPIER_WEBHOOK_URL", &cfg.WebhookURL},
	} {
		*req.dst = strings.TrimSpace(os.Getenv(req.name))
		if *req.dst == "" {
			return nil, fmt.Errorf("%s: %w", req.name, ErrMissingVariable)
		}
	}

	cfg.NotionVersion = getOr("NOTION_VERSION", "2022-06-28")
	cfg.NotionBaseURL = strings.TrimSuffix(getOr("NOTION_BASE_URL", "https://api.notion.com"), "/")

	if cfg.NotionRequestsPerSecond, err = parseFloat("NOTION_REQUESTS_PER_SECOND", 3); err != nil {
		return nil, err
	}
	if cfg.NotionRequestsPerSecond <= 0 {
		return nil, fmt.Errorf("invalid NOTION_REQUESTS_PER_SECOND: must be positive")
	}

	if cfg.DryRun, err = parseBool("DRY_RUN", false); err != nil {
		return nil, err
	}
	if cfg.DeliverySettleDelay, err = parseDuration("DELIVERY_SETTLE_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = parseDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = parseDuration("RUN_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.CoachLinksFile = os.Getenv("COACH_LINKS_FILE")
	cfg.CronSpecFollowUp = getOr("CRON_SPEC_FOLLOWUP", "0 10 * * 1-5") // Default: 10:00 AM on weekdays
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if (cfg.TelegramToken == "") != (cfg.AdminTelegramID == 0) {
		return nil, fmt.Errorf("TELEGRAM_TOKEN and ADMIN_TELEGRAM_ID must be set together")
	}

	cfg.LogLevel = strings.ToLower(getOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getOr("ENVIRONMENT", "development"))
	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg, nil
}

func getOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func parseBool(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

func parseDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", name)
	}
	return d, nil
}

func parseFloat(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return f, nil
}
