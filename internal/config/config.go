// Package config implements TOML configuration loading, validation, and
// defaults for foldersync.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration structure. The three fields in
// SyncConfig are the engine's required configuration surface; everything
// else is ambient (filtering, logging, network tuning).
type Config struct {
	Sync    SyncConfig    `toml:"sync"`
	Filter  FilterConfig  `toml:"filter"`
	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
}

// SyncConfig supplies the engine's required configuration surface.
type SyncConfig struct {
	SyncRoot            string `toml:"sync_root"`
	PollIntervalMinutes int    `toml:"poll_interval_minutes"`
	CatalogPath         string `toml:"catalog_path"`
}

// FilterConfig controls which local files are excluded from sync, beyond
// the baseline leading-dot-segment rule the scanner always applies.
type FilterConfig struct {
	SyncIgnoreFile string `toml:"sync_ignore_file"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NetworkConfig controls the remote HTTP client.
type NetworkConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Load reads and validates a TOML config file at path, starting from
// DefaultConfig so unset fields retain sane defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load, but returns DefaultConfig unmodified
// (still validated) when path does not exist. defaultSyncRoot and
// defaultCatalogPath fill the two fields DefaultConfig otherwise leaves
// empty, since their sane defaults depend on the user's home directory.
// When the file exists but leaves catalog_path unset, defaultCatalogPath
// fills it before validation.
func LoadOrDefault(path, defaultSyncRoot, defaultCatalogPath string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Sync.SyncRoot = defaultSyncRoot
		cfg.Sync.CatalogPath = defaultCatalogPath

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return cfg, nil
	}

	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %q: %w", path, err)
	}

	if cfg.Sync.CatalogPath == "" {
		cfg.Sync.CatalogPath = defaultCatalogPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required fields of the engine's configuration
// surface. It does not create sync_root or catalog_path's parent directory;
// that is the caller's responsibility at startup.
func (c *Config) Validate() error {
	if c.Sync.SyncRoot == "" {
		return fmt.Errorf("config: sync.sync_root must be set")
	}

	if !filepath.IsAbs(c.Sync.SyncRoot) {
		return fmt.Errorf("config: sync.sync_root must be an absolute path, got %q", c.Sync.SyncRoot)
	}

	if c.Sync.PollIntervalMinutes <= 0 {
		return fmt.Errorf("config: sync.poll_interval_minutes must be positive, got %d", c.Sync.PollIntervalMinutes)
	}

	if c.Sync.CatalogPath == "" {
		return fmt.Errorf("config: sync.catalog_path must be set")
	}

	if !filepath.IsAbs(c.Sync.CatalogPath) {
		return fmt.Errorf("config: sync.catalog_path must be an absolute path, got %q", c.Sync.CatalogPath)
	}

	return nil
}
