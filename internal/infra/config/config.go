package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	SMSModeSimulated = "simulated"
	SMSModeTelegram  = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	LogLevel      string
	Environment   string

	DBMaxOpenConns    int
	DBConnectAttempts int // Startup pings before giving up on the database

	CacheTTL            time.Duration // Idle time after which a budget cache entry is reaped
	CronSpecReap        string
	CronSpecResync      string
	NotifyTimeout       time.Duration // Per-channel delivery deadline
	AlertPersistRetries int

	SMTP     SMTPConfig
	SMSMode  string
	RedisURL string // Empty keeps dashboard updates in-process
}

// SMTPConfig is only used when Host is set; otherwise alert emails are logged, not sent.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.DBMaxOpenConns = 25
	if connsStr := os.Getenv("DB_MAX_OPEN_CONNS"); connsStr != "" {
		cfg.DBMaxOpenConns, err = strconv.Atoi(connsStr)
		if err != nil || cfg.DBMaxOpenConns < 1 {
			return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q", connsStr)
		}
	}

	cfg.DBConnectAttempts = 5
	if attemptsStr := os.Getenv("DB_CONNECT_ATTEMPTS"); attemptsStr != "" {
		cfg.DBConnectAttempts, err = strconv.Atoi(attemptsStr)
		if err != nil || cfg.DBConnectAttempts < 1 {
			return nil, fmt.Errorf("invalid DB_CONNECT_ATTEMPTS %q", attemptsStr)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CacheTTL = time.Hour
	if ttlStr := os.Getenv("CACHE_TTL"); ttlStr != "" {
		seconds, err := strconv.Atoi(ttlStr)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid CACHE_TTL %q: must be a positive number of seconds", ttlStr)
		}
		cfg.CacheTTL = time.Duration(seconds) * time.Second
	}

	cfg.CronSpecReap = os.Getenv("CRON_SPEC_REAP")
	if cfg.CronSpecReap == "" {
		cfg.CronSpecReap = "@every 5m"
	}
	cfg.CronSpecResync = os.Getenv("CRON_SPEC_RESYNC")
	if cfg.CronSpecResync == "" {
		cfg.CronSpecResync = "@every 15m"
	}

	cfg.NotifyTimeout = 10 * time.Second
	if timeoutStr := os.Getenv("NOTIFY_TIMEOUT"); timeoutStr != "" {
		cfg.NotifyTimeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
		}
	}

	cfg.AlertPersistRetries = 3
	if retriesStr := os.Getenv("ALERT_PERSIST_RETRIES"); retriesStr != "" {
		cfg.AlertPersistRetries, err = strconv.Atoi(retriesStr)
		if err != nil || cfg.AlertPersistRetries < 1 {
			return nil, fmt.Errorf("invalid ALERT_PERSIST_RETRIES %q", retriesStr)
		}
	}

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if cfg.SMTP.Port == "" {
		cfg.SMTP.Port = "587"
	}
	if cfg.SMTP.Enabled() && cfg.SMTP.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}

	cfg.SMSMode = strings.ToLower(os.Getenv("SMS_MODE"))
	switch cfg.SMSMode {
	case "":
		cfg.SMSMode = SMSModeSimulated
	case SMSModeSimulated, SMSModeTelegram:
	default:
		return nil, fmt.Errorf("invalid SMS_MODE %q: expected %q or %q", cfg.SMSMode, SMSModeSimulated, SMSModeTelegram)
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")

	return cfg, nil
}
