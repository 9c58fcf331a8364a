package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Storage  StorageConfig  `toml:"storage"`
	Import   ImportConfig   `toml:"import"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port      string `toml:"port"`
	BodyLimit string `toml:"body_limit"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig is shared by the status cache and the task queue.
type RedisConfig struct {
	Addr        string         `toml:"addr"`
	Password    string         `toml:"password"`
	DB          int            `toml:"db"`
	Concurrency int            `toml:"concurrency"`
	Queues      map[string]int `toml:"queues"`
}

type StorageConfig struct {
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	UseSSL        bool   `toml:"use_ssl"`
	RetentionDays int    `toml:"retention_days"`
}

type ImportConfig struct {
	BatchSize         int    `toml:"batch_size"`
	DefaultCurrency   string `toml:"default_currency"`
	StatusTTLHours    int    `toml:"status_ttl_hours"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxRetryAttempts  int    `toml:"max_retry_attempts"`
	UploadsPerMinute  int    `toml:"uploads_per_minute"`
	AsyncThresholdMiB int    `toml:"async_threshold_mib"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	JWKSURL   string `toml:"jwks_url"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// StatusTTL is how long queued import statuses stay readable.
func (c ImportConfig) StatusTTL() time.Duration {
	return time.Duration(c.StatusTTLHours) * time.Hour
}

func (c ImportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c StorageConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", BodyLimit: "50M"},
		Redis:   RedisConfig{Addr: "localhost:6379", Concurrency: 5, Queues: map[string]int{"imports": 6, "default": 3, "low": 1}},
		Storage: StorageConfig{Endpoint: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "accounting-imports", RetentionDays: 90},
		Import: ImportConfig{
			BatchSize:         100,
			DefaultCurrency:   "EUR",
			StatusTTLHours:    24,
			TimeoutSeconds:    600,
			MaxRetryAttempts:  3,
			UploadsPerMinute:  20,
			AsyncThresholdMiB: 5,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads defaults, then the TOML file at path (if any), then .env and the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Storage.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Storage.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Storage.Bucket, "MINIO_BUCKET")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.JWKSURL, "JWKS_URL")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Import.DefaultCurrency, "IMPORT_DEFAULT_CURRENCY")

	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.UseSSL = strings.EqualFold(v, "true")
	}
	if err := setInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}
	return setInt(&c.Import.BatchSize, "IMPORT_BATCH_SIZE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// Validate checks the settings every binary depends on.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required (DATABASE_URL)")
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import batch size must be positive, got %d", c.Import.BatchSize)
	}
	if c.Import.DefaultCurrency == "" {
		return errors.New("import default currency is required")
	}
	if c.Redis.Concurrency <= 0 {
		return fmt.Errorf("redis concurrency must be positive, got %d", c.Redis.Concurrency)
	}
	return nil
}
