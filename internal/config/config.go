package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Log           LogConfig           `yaml:"log"`
	Push          PushConfig          `yaml:"push"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Block         BlockConfig         `yaml:"block"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" env:"AVAIL_SERVER_PORT"`
	Host           string   `yaml:"host" env:"AVAIL_SERVER_HOST"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"AVAIL_SERVER_ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"AVAIL_DB_HOST"`
	Port     int    `yaml:"port" env:"AVAIL_DB_PORT"`
	User     string `yaml:"user" env:"AVAIL_DB_USER"`
	Password string `yaml:"password" env:"AVAIL_DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"AVAIL_DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"AVAIL_DB_SSLMODE"`
	MaxConns int32  `yaml:"max_conns" env:"AVAIL_DB_MAX_CONNS"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"AVAIL_LOG_LEVEL"`
}

// PushConfig holds Web Push (VAPID) configuration
type PushConfig struct {
	Subject         string        `yaml:"subject" env:"AVAIL_VAPID_SUBJECT"`
	VAPIDPublicKey  string        `yaml:"vapid_public_key" env:"AVAIL_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key" env:"AVAIL_VAPID_PRIVATE_KEY"`
	TTL             int           `yaml:"ttl" env:"AVAIL_PUSH_TTL"`
	Concurrency     int           `yaml:"concurrency" env:"AVAIL_PUSH_CONCURRENCY"`
	Timeout         time.Duration `yaml:"timeout" env:"AVAIL_PUSH_TIMEOUT"`
	Icon            string        `yaml:"icon" env:"AVAIL_PUSH_ICON"`
	Broadcasters    []string      `yaml:"broadcasters" env:"AVAIL_PUSH_BROADCASTERS"`
}

// NotificationsConfig holds vote notification configuration
type NotificationsConfig struct {
	Threshold int `yaml:"threshold" env:"AVAIL_NOTIFY_THRESHOLD"`
}

// BlockConfig holds bulk blocking configuration
type BlockConfig struct {
	BatchSize     int `yaml:"batch_size" env:"AVAIL_BLOCK_BATCH_SIZE"`
	DefaultMonths int `yaml:"default_months" env:"AVAIL_BLOCK_DEFAULT_MONTHS"`
	MaxMonths     int `yaml:"max_months" env:"AVAIL_BLOCK_MAX_MONTHS"`
}

// Default returns the configuration used when no file or variable overrides a value
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			DBName:   "availability",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Log: LogConfig{Level: "info"},
		Push: PushConfig{
			Subject:     "mailto:admin@example.com",
			TTL:         60 * 60 * 24,
			Concurrency: 8,
			Timeout:     30 * time.Second,
			Icon:        "/icons/icon-192.png",
		},
		Notifications: NotificationsConfig{Threshold: 3},
		Block: BlockConfig{
			BatchSize:     200,
			DefaultMonths: 6,
			MaxMonths:     24,
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults, then applies
// AVAIL_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the service misbehave at runtime
func (c *Config) Validate() error {
	if c.Notifications.Threshold < 1 {
		return fmt.Errorf("notifications.threshold must be positive, got %d", c.Notifications.Threshold)
	}
	if c.Block.BatchSize < 1 {
		return fmt.Errorf("block.batch_size must be positive, got %d", c.Block.BatchSize)
	}
	if c.Block.MaxMonths < 1 || c.Block.DefaultMonths < 1 || c.Block.DefaultMonths > c.Block.MaxMonths {
		return fmt.Errorf("block months out of range: default=%d max=%d", c.Block.DefaultMonths, c.Block.MaxMonths)
	}
	if c.Push.Concurrency < 1 {
		c.Push.Concurrency = 1
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.MaxConns)
}

// PushEnabled reports whether VAPID keys are configured
func (c *PushConfig) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}
