package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir string `json:"dataDir"`
	// Backend selects the storage backend: "pebble" (default) or "bolt".
	Backend string `json:"backend"`
	// Fsync selects WAL durability for the pebble backend:
	// "always" | "interval" | "never".
	Fsync           string       `json:"fsync"`
	FsyncIntervalMs int          `json:"fsyncIntervalMs"`
	DefaultBatch    int          `json:"defaultBatch"`
	MaxBlockSize    int          `json:"maxBlockSize"`
	Follow          FollowConfig `json:"follow"`
}

// FollowConfig captures subscriber delivery tunables.
type FollowConfig struct {
	FlushMs int `json:"flushMs"`
	Buf     int `json:"buf"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Backend:         "pebble",
		Fsync:           "always",
		FsyncIntervalMs: 5,
		DefaultBatch:    64,
		MaxBlockSize:    0,
		Follow: FollowConfig{
			FlushMs: 0,
			Buf:     1024,
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks enum fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "pebble", "bolt":
	default:
		return fmt.Errorf("config: invalid backend %q; use pebble|bolt", c.Backend)
	}
	switch c.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: invalid fsync %q; use always|interval|never", c.Fsync)
	}
	return nil
}
