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

// RedisConfig holds settings for the blob read cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	TTLSec       int
	MaxBlobBytes int
}

// AMQPConfig holds settings for version events. An empty URL disables publishing.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// VersioningConfig tunes the edit protocol.
type VersioningConfig struct {
	EditMaxAttempts    int
	EditRetryInitialMs int
	HistoryGraceSec    int
}

// RetryInitialInterval returns the first backoff delay between edit attempts.
func (v VersioningConfig) RetryInitialInterval() time.Duration {
	return time.Duration(v.EditRetryInitialMs) * time.Millisecond
}

// HistoryGracePeriod returns how long a missing history record may be attributed to an in-flight edit.
func (v VersioningConfig) HistoryGracePeriod() time.Duration {
	return time.Duration(v.HistoryGraceSec) * time.Second
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	Timezone   string
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Redis      RedisConfig
	AMQP       AMQPConfig
	Versioning VersioningConfig
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
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
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			TTLSec:       getEnvInt("CACHE_TTL_SEC", 3600),
			MaxBlobBytes: getEnvInt("CACHE_MAX_BLOB_BYTES", 1<<20),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "docvault.versions"),
		},
		Versioning: VersioningConfig{
			EditMaxAttempts:    getEnvInt("EDIT_MAX_ATTEMPTS", 3),
			EditRetryInitialMs: getEnvInt("EDIT_RETRY_INITIAL_MS", 50),
			HistoryGraceSec:    getEnvInt("HISTORY_GRACE_SEC", 30),
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
