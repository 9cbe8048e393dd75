package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Generation GenerationConfig
	Webhook    WebhookConfig
	Poller     PollerConfig
	Sweeper    SweeperConfig
	Storage    StorageConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// RedisConfig holds the balance-cache connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// GenerationConfig holds the external generation service configuration
type GenerationConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	FetchTimeout   time.Duration
	CostPerImage   int64
}

// WebhookConfig holds payment-processor webhook verification configuration
type WebhookConfig struct {
	SigningSecret string
}

// PollerConfig holds status-polling configuration
type PollerConfig struct {
	MaxAttempts int
}

// SweeperConfig holds the reservation reconciliation sweep configuration
type SweeperConfig struct {
	Interval          time.Duration
	ReservationMaxAge time.Duration
}

// StorageConfig holds blob-store configuration
type StorageConfig struct {
	Bucket        string
	PublicBaseURL string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "creditcore"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("BALANCE_CACHE_TTL", "5m"),
		},
		Generation: GenerationConfig{
			BaseURL:        getEnv("GENERATION_BASE_URL", "https://api.generation.example.com"),
			APIKey:         getEnv("GENERATION_API_KEY", ""),
			RequestTimeout: getEnvAsDuration("GENERATION_REQUEST_TIMEOUT", "30s"),
			FetchTimeout:   getEnvAsDuration("GENERATION_FETCH_TIMEOUT", "60s"),
			CostPerImage:   int64(getEnvAsInt("GENERATION_COST_PER_IMAGE", 2)),
		},
		Webhook: WebhookConfig{
			SigningSecret: getEnv("WEBHOOK_SIGNING_SECRET", ""),
		},
		Poller: PollerConfig{
			MaxAttempts: getEnvAsInt("POLLER_MAX_ATTEMPTS", 60),
		},
		Sweeper: SweeperConfig{
			Interval:          getEnvAsDuration("SWEEPER_INTERVAL", "10m"),
			ReservationMaxAge: getEnvAsDuration("SWEEPER_RESERVATION_MAX_AGE", "2h"),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("GCS_BUCKET", ""),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "https://storage.googleapis.com"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if c.Generation.BaseURL == "" {
		return fmt.Errorf("generation base URL cannot be empty")
	}
	if c.Generation.CostPerImage <= 0 {
		return fmt.Errorf("generation cost per image must be positive, got %d", c.Generation.CostPerImage)
	}

	if c.Poller.MaxAttempts <= 0 {
		return fmt.Errorf("poller max attempts must be positive, got %d", c.Poller.MaxAttempts)
	}

	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive")
	}
	if c.Sweeper.ReservationMaxAge <= 0 {
		return fmt.Errorf("sweeper reservation max age must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// Unparseable values fall back to the default so a typo in the environment
// degrades to baseline behavior instead of crashing startup.
func getEnvAsDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		d, err = time.ParseDuration(fallback)
		if err != nil {
			return 0
		}
	}
	return d
}
