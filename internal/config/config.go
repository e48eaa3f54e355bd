package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/saf-slovakia/accountancy/internal/notify"
	"github.com/saf-slovakia/accountancy/internal/storage"
	"github.com/subosito/gotenv"
)

const (
	DEFAULT_PORT              = "8080"
	DEFAULT_LOG_LEVEL         = "info"
	DEFAULT_LOG_DIR           = "./logging/logs"
	DEFAULT_DRIVER            = "mysql"
	DEFAULT_DB_NAME           = "saf_accountancy"
	DEFAULT_MIGRATIONS_DIR    = "db/migrations"
	DEFAULT_MEDIA_ROOT        = "media"
	DEFAULT_MAX_INVOICE_MB    = 10
	DEFAULT_SMTP_PORT         = 587
	DEFAULT_REMINDER_SCHEDULE = "0 8 * * 1"
	DEFAULT_ARCHIVE_SCHEDULE  = "0 3 1 1 *"
)

type Config struct {
	AppEnv           string
	Port             string
	LogLevel         string
	LogDir           string
	Storage          storage.Config
	MediaRoot        string
	MaxInvoiceSize   int64
	Sections         finances.Sections
	Notify           notify.Config
	ReminderSchedule string
	ArchiveSchedule  string
	CORSOrigins      []string
}

// InMemory reports whether the process should run without a database.
func (c Config) InMemory() bool {
	return c.Storage.Driver == "inmemory"
}

func invalid(format string, args ...any) error {
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

func getEnv(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, invalid("%s must be a positive number, got %q", key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Load reads .env (when present) into the environment and builds the configuration from it.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := gotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		AppEnv:           strings.ToLower(getEnv("APP_ENV", "development")),
		Port:             getEnv("APP_PORT", DEFAULT_PORT),
		LogLevel:         getEnv("LOG_LEVEL", DEFAULT_LOG_LEVEL),
		LogDir:           getEnv("LOG_DIR", DEFAULT_LOG_DIR),
		MediaRoot:        getEnv("MEDIA_ROOT", DEFAULT_MEDIA_ROOT),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", DEFAULT_REMINDER_SCHEDULE),
		ArchiveSchedule:  getEnv("ARCHIVE_SCHEDULE", DEFAULT_ARCHIVE_SCHEDULE),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, invalid("APP_PORT must be a number, got %q", cfg.Port)
	}

	cfg.Storage = storage.Config{
		Driver:        strings.ToLower(getEnv("DB_DRIVER", DEFAULT_DRIVER)),
		User:          getEnv("DB_USER", ""),
		Pass:          getEnv("DB_PASS", ""),
		Host:          getEnv("DB_HOST", ""),
		Port:          getEnv("DB_PORT", ""),
		Name:          getEnv("DB_NAME", DEFAULT_DB_NAME),
		FullDSN:       getEnv("FULL_DSN", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", DEFAULT_MIGRATIONS_DIR),
	}
	if !cfg.InMemory() {
		if _, ok := storage.DialectFor(cfg.Storage.Driver); !ok {
			return Config{}, invalid("DB_DRIVER must be one of mysql, postgres, inmemory, got %q", cfg.Storage.Driver)
		}
	}

	invoiceMB, err := getInt("MAX_INVOICE_SIZE_MB", DEFAULT_MAX_INVOICE_MB)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxInvoiceSize = int64(invoiceMB) << 20

	cfg.Sections, err = finances.ParseSections(getEnv("SECTIONS", finances.DefaultSections))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SECTIONS: %w", err)
	}

	smtpPort, err := getInt("SMTP_PORT", DEFAULT_SMTP_PORT)
	if err != nil {
		return Config{}, err
	}
	recipients := notify.DefaultRecipients()
	for role := range recipients {
		if addresses := splitList(getEnv(string(role), "")); len(addresses) > 0 {
			recipients[role] = addresses
		}
	}
	cfg.Notify = notify.Config{
		Recipients:    recipients,
		From:          getEnv("FROM_EMAIL_NAME", notify.DefaultFrom),
		SubjectPrefix: os.Getenv("EMAIL_SUBJECT_PREFIX"),
		SMTP: notify.SMTPConfig{
			Host: getEnv("SMTP_HOST", ""),
			Port: smtpPort,
			User: getEnv("SMTP_USER", ""),
			Pass: getEnv("SMTP_PASS", ""),
		},
	}

	for key, spec := range map[string]string{
		"REMINDER_SCHEDULE": cfg.ReminderSchedule,
		"ARCHIVE_SCHEDULE":  cfg.ArchiveSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return Config{}, invalid("%s is not a valid cron schedule: %v", key, err)
		}
	}

	return cfg, nil
}
