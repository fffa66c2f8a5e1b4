package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AssistConfig holds settings for the optional generative text service.
// Budget and timeout are enforced by the adapter, never by callers.
type AssistConfig struct {
	Enabled     bool
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxChars    int
	TokenBudget int64
	MaxRetries  int
}

// VariationConfig holds tuning knobs for the text and image variation engines.
// RandSeed of 0 means seed from the clock; tests inject a fixed seed to make
// variant parameters reproducible.
type VariationConfig struct {
	TitleMaxLen   int
	TextRetries   int
	ImageRetries  int
	RetentionDays int
	RandSeed      int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Assist    AssistConfig
	Variation VariationConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Assist: AssistConfig{
			Enabled:     getEnvBool("ASSIST_ENABLED", false),
			Endpoint:    getEnv("ASSIST_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			APIKey:      getEnv("ASSIST_API_KEY", ""),
			Model:       getEnv("ASSIST_MODEL", "gpt-3.5-turbo"),
			Timeout:     time.Duration(getEnvInt("ASSIST_TIMEOUT_MS", 3000)) * time.Millisecond,
			MaxChars:    getEnvInt("ASSIST_MAX_CHARS", 500),
			TokenBudget: int64(getEnvInt("ASSIST_TOKEN_BUDGET", 100000)),
			MaxRetries:  getEnvInt("ASSIST_MAX_RETRIES", 2),
		},
		Variation: VariationConfig{
			TitleMaxLen:   getEnvInt("TITLE_MAX_LEN", 60),
			TextRetries:   getEnvInt("TEXT_RETRIES", 5),
			ImageRetries:  getEnvInt("IMAGE_RETRIES", 5),
			RetentionDays: getEnvInt("RETENTION_DAYS", 30),
			RandSeed:      int64(getEnvInt("RAND_SEED", 0)),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
