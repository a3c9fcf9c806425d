package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the session client.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Queue   QueueConfig
	Storage StorageConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// APIConfig holds auth API transport configuration.
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	// LogoutTimeout bounds the best-effort remote logout call separately
	// from regular auth calls.
	LogoutTimeout time.Duration
}

// SessionConfig holds session lifecycle policy.
type SessionConfig struct {
	// RefreshThreshold is how long before access-token expiry a refresh
	// is triggered.
	RefreshThreshold time.Duration
	// InactivityTimeout forces a logout after this much idle time.
	InactivityTimeout time.Duration
	// CheckInterval is how often the periodic inactivity check runs.
	CheckInterval time.Duration
}

// QueueConfig holds offline request queue configuration.
type QueueConfig struct {
	MaxRetries int
}

// StorageConfig selects and configures the durable token store.
type StorageConfig struct {
	// Driver is "sqlite" or "redis".
	Driver     string
	SQLitePath string
}

// RedisConfig holds Redis configuration for the redis storage driver.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string
	Environment string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:3000/api"),
			RequestTimeout: getEnvDuration("API_REQUEST_TIMEOUT", 30*time.Second),
			LogoutTimeout:  getEnvDuration("API_LOGOUT_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			RefreshThreshold:  getEnvDuration("SESSION_REFRESH_THRESHOLD", 5*time.Minute),
			InactivityTimeout: getEnvDuration("SESSION_INACTIVITY_TIMEOUT", 30*time.Minute),
			CheckInterval:     getEnvDuration("SESSION_CHECK_INTERVAL", 60*time.Second),
		},
		Queue: QueueConfig{
			MaxRetries: getEnvInt("QUEUE_MAX_RETRIES", 3),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", "sqlite"),
			SQLitePath: getEnv("STORAGE_SQLITE_PATH", "./data/session.db"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENVIRONMENT", "development"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
