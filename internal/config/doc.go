// Package config provides loading and environment overlay for logpipe
// configuration. It exposes a Default() baseline, JSON file loading, and a
// LOGPIPE_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/logpipe.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
