// Package config holds goac's runtime configuration, loaded from
// <home>/config.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all goac configuration.
type Config struct {
	// Home is the state directory (database, logs).
	Home string `yaml:"home"`

	// DatabasePath is the sqlite database location. Relative paths are
	// resolved against Home.
	DatabasePath string `yaml:"database_path"`

	// Account defaults applied when creating accounts.
	Account AccountConfig `yaml:"account"`

	// Logging controls the categorized file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// AccountConfig holds account-creation defaults.
type AccountConfig struct {
	// PreferEncrypt is the default prefer-encrypt policy for new
	// accounts: mutual or nopreference.
	PreferEncrypt string `yaml:"prefer_encrypt"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultHome returns ~/.goac, or ./.goac when the home directory cannot
// be determined.
func DefaultHome() string {
	if h := os.Getenv("GOAC_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".goac"
	}
	return filepath.Join(home, ".goac")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := DefaultHome()
	return &Config{
		Home:         home,
		DatabasePath: "goac.db",
		Account: AccountConfig{
			PreferEncrypt: "nopreference",
		},
		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
		},
	}
}

// Load loads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFromHome loads <home>/config.yaml.
func LoadFromHome(home string) (*Config, error) {
	cfg, err := Load(filepath.Join(home, "config.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Home = home
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// DBPath resolves the database path against Home.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.DatabasePath) {
		return c.DatabasePath
	}
	return filepath.Join(c.Home, c.DatabasePath)
}

func (c *Config) applyEnvOverrides() {
	if h := os.Getenv("GOAC_HOME"); h != "" {
		c.Home = h
	}
	if db := os.Getenv("GOAC_DB"); db != "" {
		c.DatabasePath = db
	}
}
