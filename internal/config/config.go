package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level sheetdrop configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Uploads UploadsConfig `yaml:"uploads" mapstructure:"uploads"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host               string   `yaml:"host" mapstructure:"host"`
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	ShutdownTimeout    string   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AuthConfig controls credentials and token issuance.
type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL          string `yaml:"token_ttl" mapstructure:"token_ttl"`
	BcryptCost        int    `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	MinPasswordLength int    `yaml:"min_password_length" mapstructure:"min_password_length"`
	RetainRejected    bool   `yaml:"retain_rejected" mapstructure:"retain_rejected"`
}

// StorageConfig selects and tunes the database backing the store.
type StorageConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	DSN          string `yaml:"dsn" mapstructure:"dsn"`
	QueryTimeout string `yaml:"query_timeout" mapstructure:"query_timeout"`
}

// UploadsConfig controls spreadsheet file storage.
type UploadsConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	MaxSizeBytes int64  `yaml:"max_size_bytes" mapstructure:"max_size_bytes"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 100,
			ShutdownTimeout:    "30s",
		},
		Auth: AuthConfig{
			TokenTTL:          "168h",
			MinPasswordLength: 6,
		},
		Storage: StorageConfig{
			Driver:       "sqlite",
			QueryTimeout: "5s",
		},
		Uploads: UploadsConfig{
			Dir:          "uploads",
			MaxSizeBytes: 10 * 1024 * 1024,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Duration parses one of the config's duration strings, falling back when
// the value is empty or malformed.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
