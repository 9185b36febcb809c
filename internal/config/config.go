package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Lock       LockConfig       `yaml:"lock"`
	Storage    StorageConfig    `yaml:"storage"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Reminder   ReminderConfig   `yaml:"reminder"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type AuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey binds an API key pair to a platform user and its token scopes.
type APIClientKey struct {
	Key    string   `yaml:"key"`
	Extra  string   `yaml:"extra"`
	Name   string   `yaml:"name"`
	UserID int64    `yaml:"user_id"`
	Scopes []string `yaml:"scopes"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LockConfig struct {
	WaitSeconds int `yaml:"wait_seconds"`
	HoldSeconds int `yaml:"hold_seconds"`
}

func (c LockConfig) Wait() time.Duration { return time.Duration(c.WaitSeconds) * time.Second }
func (c LockConfig) Hold() time.Duration { return time.Duration(c.HoldSeconds) * time.Second }

type StorageConfig struct {
	ImagesPath string `yaml:"images_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	Enabled             bool   `yaml:"enabled"`
	CredentialsFile     string `yaml:"credentials_file"`
	LedgerSpreadsheetID string `yaml:"ledger_spreadsheet_id"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type ReminderConfig struct {
	// Time is the local HH:MM at which the reservations-starting-today
	// notifier runs.
	Time string `yaml:"time"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// Optional .env for local development; YAML values may reference
	// environment variables.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Auth.Enabled {
		seen := make(map[string]bool, len(c.Auth.APIKeys))
		for _, k := range c.Auth.APIKeys {
			if k.Key == "" || k.Extra == "" {
				return fmt.Errorf("api key %q must set key and extra", k.Name)
			}
			if k.UserID == 0 {
				return fmt.Errorf("api key %q must reference a user_id", k.Name)
			}
			if seen[k.Key] {
				return fmt.Errorf("duplicate api key %q", k.Name)
			}
			seen[k.Key] = true
		}
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}

	if c.Google.Enabled {
		if c.Google.CredentialsFile == "" || c.Google.LedgerSpreadsheetID == "" {
			return errors.New("google ledger requires credentials_file and ledger_spreadsheet_id")
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Auth.HeaderAPIKey == "" {
		c.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Auth.HeaderExtra == "" {
		c.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Lock.WaitSeconds == 0 {
		c.Lock.WaitSeconds = 3
	}
	if c.Lock.HoldSeconds == 0 {
		c.Lock.HoldSeconds = 10
	}
	if c.Storage.ImagesPath == "" {
		c.Storage.ImagesPath = "storage/images"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "storage/exports"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Reminder.Time == "" {
		c.Reminder.Time = "08:00"
	}
}
