// ABOUTME: Configuration loading from flags, TEAMHUB_ environment variables, .env files and an optional config file.
// ABOUTME: Also resolves and validates the SQLite database location.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads
const EnvPrefix = "TEAMHUB"

// Config is the resolved server configuration
type Config struct {
	Listen       string        `mapstructure:"listen"`
	BackendURL   string        `mapstructure:"backend_url"`
	DBPath       string        `mapstructure:"db_path"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	SnapshotWait time.Duration `mapstructure:"snapshot_wait"`
	SnapshotAge  time.Duration `mapstructure:"snapshot_max_age"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	SessionSize  int           `mapstructure:"session_size"`
}

var defaults = map[string]any{
	"listen":           ":9100",
	"backend_url":      "",
	"db_path":          "",
	"log_level":        "info",
	"log_format":       "text",
	"http_timeout":     "10s",
	"snapshot_wait":    "1500ms",
	"snapshot_max_age": "10s",
	"session_ttl":      "5m",
	"session_size":     1024,
}

// flagKeys maps CLI flag names to configuration keys
var flagKeys = map[string]string{
	"listen":     "listen",
	"backend":    "backend_url",
	"db":         "db_path",
	"log-level":  "log_level",
	"log-format": "log_format",
}

// LoadDotEnv loads .env from the working directory and the home directory.
// Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".env"))
	}
}

// Load resolves configuration. Precedence is flags, then environment, then
// configFile, then defaults. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	LoadDotEnv()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address cannot be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.SnapshotWait < 0 {
		return fmt.Errorf("snapshot_wait cannot be negative, got %s", c.SnapshotWait)
	}
	if c.SnapshotAge < 0 {
		return fmt.Errorf("snapshot_max_age cannot be negative, got %s", c.SnapshotAge)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.SessionSize <= 0 {
		return fmt.Errorf("session_size must be positive, got %d", c.SessionSize)
	}
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	return nil
}

// RequireBackend reports an error when no backend URL is configured
func (c *Config) RequireBackend() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL is required: pass --backend or set %s_BACKEND_URL", EnvPrefix)
	}
	return nil
}

// ResolveDBPath returns the validated database path, picking the default location when none is configured
func (c *Config) ResolveDBPath() (string, error) {
	path := c.DBPath
	if strings.TrimSpace(path) == "" {
		path = DefaultDBPath()
	}
	return ValidateDBPath(path)
}
