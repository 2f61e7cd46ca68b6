package config

import (
	"os"
	"strconv"
)

// FromEnv overlays LOGPIPE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("LOGPIPE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOGPIPE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("LOGPIPE_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("LOGPIPE_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("LOGPIPE_DEFAULT_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultBatch = n
		}
	}
	if v := os.Getenv("LOGPIPE_MAX_BLOCK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxBlockSize = n
		}
	}
	if v := os.Getenv("LOGPIPE_FOLLOW_FLUSH_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Follow.FlushMs = n
		}
	}
	if v := os.Getenv("LOGPIPE_FOLLOW_BUF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Follow.Buf = n
		}
	}
}
