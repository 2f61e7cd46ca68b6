package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Backend != "pebble" {
		t.Fatalf("default backend")
	}
	if cfg.Fsync != "always" {
		t.Fatalf("default fsync")
	}
	if cfg.DefaultBatch != 64 {
		t.Fatalf("default batch")
	}
	if cfg.Follow.Buf != 1024 {
		t.Fatalf("default follow buf")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logpipe.json")
	data := []byte(`{"backend":"bolt","fsync":"interval","fsyncIntervalMs":10,"defaultBatch":128,"follow":{"flushMs":2,"buf":256}}`)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "bolt" {
		t.Fatalf("expected bolt")
	}
	if cfg.Fsync != "interval" || cfg.FsyncIntervalMs != 10 {
		t.Fatalf("fsync fields")
	}
	if cfg.DefaultBatch != 128 {
		t.Fatalf("expected 128")
	}
	if cfg.Follow.FlushMs != 2 || cfg.Follow.Buf != 256 {
		t.Fatalf("follow fields")
	}
}

func TestLoadRejectsBadEnums(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logpipe.json")
	if err := os.WriteFile(file, []byte(`{"backend":"etcd"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("LOGPIPE_BACKEND", "bolt")
	os.Setenv("LOGPIPE_DEFAULT_BATCH", "32")
	os.Setenv("LOGPIPE_FOLLOW_FLUSH_MS", "3")
	t.Cleanup(func() {
		os.Unsetenv("LOGPIPE_BACKEND")
		os.Unsetenv("LOGPIPE_DEFAULT_BATCH")
		os.Unsetenv("LOGPIPE_FOLLOW_FLUSH_MS")
	})
	FromEnv(&cfg)
	if cfg.Backend != "bolt" {
		t.Fatalf("env override backend")
	}
	if cfg.DefaultBatch != 32 {
		t.Fatalf("env override batch")
	}
	if cfg.Follow.FlushMs != 3 {
		t.Fatalf("env override flush window")
	}
}
