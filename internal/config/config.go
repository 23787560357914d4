// Package config loads the server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shop     ShopConfig     `yaml:"shop"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is the sustained requests per second allowed per caller.
	// Zero disables rate limiting.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the burst allowance per caller.
	RateBurst int `yaml:"rate_burst"`
}

// DatabaseConfig configures persistence. An empty DSN selects the in-memory
// store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig configures the root logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ShopConfig configures the shop accounts.
type ShopConfig struct {
	// AdminAddress is granted the administrator role at startup.
	AdminAddress string `yaml:"admin_address"`
	// CustodyAddress receives issuance proceeds.
	CustodyAddress string `yaml:"custody_address"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 50,
			RateBurst: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault loads configuration from path, falling back to defaults
// (plus environment overrides) when the file does not exist.
func LoadOrDefault(path string) (Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Default()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("COFFEESHOP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("COFFEESHOP_RATE_LIMIT"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Server.RateLimit = parsed
		}
	}
	if v := os.Getenv("COFFEESHOP_RATE_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Server.RateBurst = parsed
		}
	}
	if v := os.Getenv("COFFEESHOP_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("COFFEESHOP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COFFEESHOP_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("COFFEESHOP_ADMIN_ADDRESS"); v != "" {
		c.Shop.AdminAddress = v
	}
	if v := os.Getenv("COFFEESHOP_CUSTODY_ADDRESS"); v != "" {
		c.Shop.CustodyAddress = v
	}
}
