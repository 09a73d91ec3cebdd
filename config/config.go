package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	AWS        AWSConfig
	Email      EmailConfig
	Invitation InvitationConfig
	Worker     WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	AppURL             string // public frontend URL used in email links
	CookieSecure       bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (DATABASE_URL)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds object storage credentials and bucket name.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string // optional, for S3-compatible providers
	PublicBaseURL   string // optional CDN/base URL for stored objects
}

// Enabled reports whether enough settings exist to build a storage client.
func (c AWSConfig) Enabled() bool {
	return c.Region != "" && c.Bucket != ""
}

// EmailConfig for SMTP delivery. Empty SMTPHost means mocked delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// Mocked reports whether outbound mail is logged instead of sent.
func (c EmailConfig) Mocked() bool {
	return c.SMTPHost == ""
}

// InvitationConfig holds invitation lifetime and sweep schedule.
type InvitationConfig struct {
	TTLHours  int
	SweepCron string
}

// WorkerConfig controls the notification dispatcher.
type WorkerConfig struct {
	Inline      bool   // run the dispatcher inside the API process
	RequeueCron string // schedule for re-enqueuing stale pending notifications
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			AppURL:             strings.TrimRight(getEnv("APP_URL", getEnv("NEXT_PUBLIC_APP_URL", "http://localhost:3000")), "/"),
			CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "hackhub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 7*24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("S3_BUCKET", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			PublicBaseURL:   strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		},
		Email:      loadEmail(),
		Invitation: InvitationConfig{
			TTLHours:  getEnvInt("INVITATION_TTL_HOURS", 7*24),
			SweepCron: getEnv("INVITATION_SWEEP_CRON", "*/15 * * * *"),
		},
		Worker: WorkerConfig{
			Inline:      getEnvBool("WORKER_INLINE", true),
			RequeueCron: getEnv("NOTIFICATION_REQUEUE_CRON", "*/5 * * * *"),
		},
	}
	return cfg, nil
}

// loadEmail prefers explicit SMTP_* settings and falls back to a Gmail account.
func loadEmail() EmailConfig {
	c := EmailConfig{
		FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		FromName:    getEnv("EMAIL_FROM_NAME", "HackHub"),
		SMTPHost:    getEnv("SMTP_HOST", ""),
		SMTPPort:    getEnvInt("SMTP_PORT", 587),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
	}
	if c.SMTPHost == "" {
		if user, pass := os.Getenv("GMAIL_USER"), os.Getenv("GMAIL_PASS"); user != "" && pass != "" {
			c.SMTPHost = "smtp.gmail.com"
			c.SMTPPort = 587
			c.SMTPUser = user
			c.SMTPPass = pass
		}
	}
	if c.FromAddress == "" {
		c.FromAddress = c.SMTPUser
	}
	if c.FromAddress == "" {
		c.FromAddress = "noreply@example.com"
	}
	return c
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
