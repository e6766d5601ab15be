package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	StoreDriver        string
	JWTSecret          string
	Environment        string
	MigrationsDir      string
	RunMigrations      bool
	RunSeed            bool
	SeedAdminEmail     string
	SeedAdminPassword  string
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	MetricsEnabled     bool

	EmailFrom       string
	EmailEnabled    bool
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPUseTLS      bool
	SendGridAPIKey  string
	AdminEmail      string
	ClinicalEmail   string
	AuditEmail      string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	AdminOnCall     string
	ClinicalOnCall  string
	CallOutTimezone string

	SweepSchedule    string
	RefreshSchedule  string
	DefaultPTOHours  float64
	DefaultSickHours float64
}

func Load() Config {
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		Environment:        getEnv("APP_ENV", "development"),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", true),
		SeedAdminEmail:     getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:  getEnv("SEED_ADMIN_PASSWORD", ""),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		EmailFrom:          getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		ClinicalEmail:      getEnv("CLINICAL_EMAIL", ""),
		AuditEmail:         getEnv("AUDIT_EMAIL", ""),
		TwilioSID:          getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:         getEnv("TWILIO_PHONE_NUMBER", ""),
		AdminOnCall:        getEnv("ADMIN_ONCALL_PHONE", ""),
		ClinicalOnCall:     getEnv("CLINICAL_ONCALL_PHONE", ""),
		CallOutTimezone:    getEnv("CALLOUT_TIMEZONE", "America/New_York"),
		SweepSchedule:      getEnv("SWEEP_SCHEDULE", "5 0 * * *"),
		RefreshSchedule:    getEnv("REFRESH_SCHEDULE", "15 0 * * *"),
		DefaultPTOHours:    getEnvFloat("DEFAULT_PTO_HOURS", 60),
		DefaultSickHours:   getEnvFloat("DEFAULT_SICK_HOURS", 60),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location resolves CallOutTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.CallOutTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.StoreDriver == StoreDriverMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.EmailEnabled && c.SMTPHost == "" && c.SendGridAPIKey == "" {
		return fmt.Errorf("SMTP_HOST or SENDGRID_API_KEY must be set when EMAIL_ENABLED is true")
	}
	if _, err := time.LoadLocation(c.CallOutTimezone); err != nil {
		return fmt.Errorf("CALLOUT_TIMEZONE: %w", err)
	}
	for key, expr := range map[string]string{"SWEEP_SCHEDULE": c.SweepSchedule, "REFRESH_SCHEDULE": c.RefreshSchedule} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.DefaultPTOHours < 0 || c.DefaultSickHours < 0 {
		return fmt.Errorf("DEFAULT_PTO_HOURS and DEFAULT_SICK_HOURS must not be negative")
	}
	return nil
}
