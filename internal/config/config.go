package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Auth (tokens are issued by the identity provider, verified here)
	JWTSecret    string
	AdminOpenIDs string
	AdminEmails  string

	// SLA sweep
	SLASweepSpec  string
	SLAWarningAge time.Duration
	SLAExpiryAge  time.Duration

	// Email
	EmailProvider  string
	EmailHost      string
	EmailPort      int
	EmailUser      string
	EmailPassword  string
	EmailFrom      string
	SendGridAPIKey string
	AppURL         string

	// Server
	Port               string
	CORSOrigins        string
	WebhookSourcesPath string
	LogRetentionDays   int
	SentryDSN          string
	AppEnv             string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; it never overrides real variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "n0_error_tracker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "data/n0.sqlite"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		AdminOpenIDs: getEnv("ADMIN_OPEN_IDS", ""),
		AdminEmails:  getEnv("ADMIN_EMAILS", ""),

		SLASweepSpec:  getEnv("SLA_SWEEP_SPEC", "@every 5m"),
		SLAWarningAge: parseDuration(getEnv("SLA_WARNING_AGE", "72h"), 72*time.Hour),
		SLAExpiryAge:  parseDuration(getEnv("SLA_EXPIRY_AGE", "96h"), 96*time.Hour),

		EmailProvider:  strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp")),
		EmailHost:      getEnv("EMAIL_HOST", "smtp.gmail.com"),
		EmailPort:      parseInt(getEnv("EMAIL_PORT", "587"), 587),
		EmailUser:      getEnv("EMAIL_USER", ""),
		EmailPassword:  getEnv("EMAIL_PASSWORD", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AppURL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),

		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        getEnv("CORS_ORIGINS", "*"),
		WebhookSourcesPath: getEnv("WEBHOOK_SOURCES_PATH", "webhook_sources.json"),
		LogRetentionDays:   parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		AppEnv:             getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// FromAddress falls back to the SMTP user, matching how most relays expect
// the envelope sender.
func (c *Config) FromAddress() string {
	if c.EmailFrom != "" {
		return c.EmailFrom
	}
	return c.EmailUser
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// SplitList parses a comma separated env value, dropping blanks.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
