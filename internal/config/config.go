package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Auth        AuthConfig
	OAuth       OAuthConfig
	Storage     StorageConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL           string
	AdminCacheTTL time.Duration
}

// RabbitMQConfig is optional. An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type AuthConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	StateTTL           time.Duration
}

// Enabled reports whether Google sign-in is configured
func (c OAuthConfig) Enabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

type StorageConfig struct {
	Dir           string
	PublicBaseURL string
	MaxUploadSize int64
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	port := getEnvOrViper("PORT", "8080")

	cfg := &Config{
		Port:        port,
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:         getEnvOrViper("DB_HOST", "localhost"),
			Port:         getEnvOrViper("DB_PORT", "5432"),
			User:         getEnvOrViper("DB_USER", "postgres"),
			Password:     getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:       getEnvOrViper("DB_NAME", "proxybuy"),
			SSLMode:      getEnvOrViper("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntOrDefault("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:           getEnvOrViper("REDIS_URL", "redis://localhost:6379/0"),
			AdminCacheTTL: getDurationOrDefault("ADMIN_CACHE_TTL", time.Minute),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnvOrViper("RABBITMQ_URL", ""),
			Exchange: getEnvOrViper("RABBITMQ_EXCHANGE", "proxybuy.events"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnvOrViper("JWT_SECRET", ""),
			SessionTTL: getDurationOrDefault("SESSION_TTL", 24*time.Hour),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnvOrViper("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnvOrViper("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnvOrViper("GOOGLE_REDIRECT_URL", "http://localhost:"+port+"/v1/auth/callback"),
			StateTTL:           getDurationOrDefault("OAUTH_STATE_TTL", 10*time.Minute),
		},
		Storage: StorageConfig{
			Dir:           getEnvOrViper("STORAGE_DIR", "./data/storage"),
			PublicBaseURL: getEnvOrViper("PUBLIC_BASE_URL", "http://localhost:"+port),
			MaxUploadSize: int64(getIntOrDefault("MAX_UPLOAD_SIZE", 10<<20)),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
