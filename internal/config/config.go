package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Gemini       GeminiConfig
	Attachments  AttachmentConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// GeminiConfig drives the area prediction client. The API key is supplied via
// environment only and is never echoed back through the API.
type GeminiConfig struct {
	APIKey              string
	Model               string
	BaseURL             string
	TimeoutSeconds      int
	RetryTimeoutSeconds int
	MaxRetries          int
	CacheTTLMinutes     int
}

// AttachmentConfig bounds file uploads.
type AttachmentConfig struct {
	MaxSizeBytes        int64
	MaxPerTicket        int
	StorageRoot         string
	DeleteWindowMinutes int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Gemini: GeminiConfig{
			APIKey:              os.Getenv("GEMINI_API_KEY"),
			Model:               getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL:             getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			TimeoutSeconds:      getEnvAsInt("GEMINI_TIMEOUT_SECONDS", 60),
			RetryTimeoutSeconds: getEnvAsInt("GEMINI_RETRY_TIMEOUT_SECONDS", 30),
			MaxRetries:          getEnvAsInt("GEMINI_MAX_RETRIES", 2),
			CacheTTLMinutes:     getEnvAsInt("GEMINI_CACHE_TTL_MINUTES", 60),
		},
		Attachments: AttachmentConfig{
			MaxSizeBytes:       int64(getEnvAsInt("ATTACHMENT_MAX_SIZE_BYTES", 10*1024*1024)),
			MaxPerTicket:       getEnvAsInt("ATTACHMENT_MAX_PER_TICKET", 5),
			StorageRoot:        getEnv("ATTACHMENT_STORAGE_ROOT", "storage"),
			DeleteWindowMinutes: getEnvAsInt("ATTACHMENT_DELETE_WINDOW_MINUTES", 30),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the primary call timeout.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// RetryTimeout returns the timeout for the reduced-prompt retry call.
func (g GeminiConfig) RetryTimeout() time.Duration {
	return time.Duration(g.RetryTimeoutSeconds) * time.Second
}

// CacheTTL returns how long predictions stay cached.
func (g GeminiConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLMinutes) * time.Minute
}

// DeleteWindow returns how long after upload the uploader may delete a file.
func (a AttachmentConfig) DeleteWindow() time.Duration {
	return time.Duration(a.DeleteWindowMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
