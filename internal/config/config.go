package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"auto-atelier/internal/booking"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Catalog  CatalogConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for catalog files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "catalog/")
}

// CatalogConfig lists the option catalog files to load.
type CatalogConfig struct {
	Files []string
}

// BookingConfig holds the shop's scheduling and fulfillment rules.
type BookingConfig struct {
	Timezone                string
	OpenTime                string // HH:MM, first bookable start
	CloseTime               string // HH:MM, last bookable start
	SlotMinutes             int
	CapacityLimit           int
	CancellationWindowHours int
	ProcessingFeePercent    float64
}

// PaymentConfig holds refund gateway configuration.
type PaymentConfig struct {
	BaseURL        string
	SecretKey      string
	TimeoutSeconds int
}

// RedisConfig holds configuration for the refund lock store.
type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	LockTTLSeconds int
}

// KafkaConfig holds configuration for domain event publishing.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables. Values from a .env
// file in the working directory (or ENV_FILE) are applied first without
// overriding variables already set.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "atelier"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "catalog/"),
		},
		Catalog: CatalogConfig{
			Files: getEnvAsList("CATALOG_FILES", []string{"data/catalog/options.csv.gz"}),
		},
		Booking: BookingConfig{
			Timezone:                getEnv("SHOP_TIMEZONE", "UTC"),
			OpenTime:                getEnv("BOOKING_OPEN_TIME", "08:00"),
			CloseTime:               getEnv("BOOKING_CLOSE_TIME", "17:00"),
			SlotMinutes:             getEnvAsInt("BOOKING_SLOT_MINUTES", 30),
			CapacityLimit:           getEnvAsInt("BOOKING_CAPACITY_LIMIT", 10),
			CancellationWindowHours: getEnvAsInt("CANCELLATION_WINDOW_HOURS", 24),
			ProcessingFeePercent:    getEnvAsFloat("REFUND_FEE_PERCENT", 2),
		},
		Payment: PaymentConfig{
			BaseURL:        getEnv("PAYMENT_BASE_URL", ""),
			SecretKey:      getEnv("PAYMENT_SECRET_KEY", ""),
			TimeoutSeconds: getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 10),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", false),
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			LockTTLSeconds: getEnvAsInt("REFUND_LOCK_TTL_SECONDS", 60),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "atelier.events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if len(c.Catalog.Files) == 0 {
		return fmt.Errorf("at least one catalog file is required")
	}

	if err := c.Booking.validate(); err != nil {
		return err
	}

	if c.Payment.TimeoutSeconds < 1 {
		return fmt.Errorf("payment timeout must be at least 1 second")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Redis.LockTTLSeconds < 1 {
		return fmt.Errorf("refund lock TTL must be at least 1 second")
	}

	// The lock must outlive a refund call or a second refund can start.
	if c.Redis.LockTTLSeconds <= c.Payment.TimeoutSeconds {
		return fmt.Errorf("refund lock TTL (%ds) must exceed the payment timeout (%ds)", c.Redis.LockTTLSeconds, c.Payment.TimeoutSeconds)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	return nil
}

func (b *BookingConfig) validate() error {
	if _, err := time.LoadLocation(b.Timezone); err != nil {
		return fmt.Errorf("invalid shop timezone: %s", b.Timezone)
	}
	if _, err := time.Parse("15:04", b.OpenTime); err != nil {
		return fmt.Errorf("invalid booking open time: %s (must be HH:MM)", b.OpenTime)
	}
	if _, err := time.Parse("15:04", b.CloseTime); err != nil {
		return fmt.Errorf("invalid booking close time: %s (must be HH:MM)", b.CloseTime)
	}
	if b.SlotMinutes < 1 {
		return fmt.Errorf("booking slot minutes must be at least 1")
	}
	if b.CapacityLimit < 1 {
		return fmt.Errorf("booking capacity limit must be at least 1")
	}
	if b.CancellationWindowHours < 0 {
		return fmt.Errorf("cancellation window cannot be negative")
	}
	if b.ProcessingFeePercent < 0 || b.ProcessingFeePercent > 100 {
		return fmt.Errorf("invalid refund fee percent: %v (must be between 0 and 100)", b.ProcessingFeePercent)
	}
	return nil
}

// Rules converts the booking configuration into engine rules.
func (b *BookingConfig) Rules() (booking.Rules, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return booking.Rules{}, fmt.Errorf("invalid shop timezone: %w", err)
	}
	openAt, err := booking.ParseTimeOfDay(b.OpenTime)
	if err != nil {
		return booking.Rules{}, fmt.Errorf("invalid booking open time: %w", err)
	}
	closeAt, err := booking.ParseTimeOfDay(b.CloseTime)
	if err != nil {
		return booking.Rules{}, fmt.Errorf("invalid booking close time: %w", err)
	}

	rules := booking.Rules{
		Location:           loc,
		OpenAt:             openAt,
		CloseAt:            closeAt,
		SlotInterval:       time.Duration(b.SlotMinutes) * time.Minute,
		CancellationWindow: time.Duration(b.CancellationWindowHours) * time.Hour,
		ProcessingFeeRate:  decimal.NewFromFloat(b.ProcessingFeePercent).Div(decimal.NewFromInt(100)),
		CapacityLimit:      b.CapacityLimit,
	}
	if err := rules.Validate(); err != nil {
		return booking.Rules{}, fmt.Errorf("invalid booking rules: %w", err)
	}
	return rules, nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the refund gateway timeout.
func (c *PaymentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LockTTL returns how long a refund lock is held before it expires.
func (c *RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// loadDotEnv applies variables from path. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsList retrieves a comma separated environment variable or returns a default value.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
