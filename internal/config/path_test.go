package config

import (
	"os"
	"testing"
)

func TestDefaultDataDirXDGOverride(t *testing.T) {
	original := os.Getenv("XDG_DATA_HOME")
	t.Cleanup(func() {
		if original != "" {
			os.Setenv("XDG_DATA_HOME", original)
		} else {
			os.Unsetenv("XDG_DATA_HOME")
		}
	})
	os.Setenv("XDG_DATA_HOME", "/custom/data")

	if got := DefaultDataDir(); got != "/custom/data/logpipe" {
		t.Fatalf("want /custom/data/logpipe, got %s", got)
	}
}

func TestDefaultDataDirNonEmpty(t *testing.T) {
	if DefaultDataDir() == "" {
		t.Fatalf("DefaultDataDir should never be empty")
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Fatalf("expected cwd to be a directory")
	}
	if isDir("/non/existent/path/for/sure") {
		t.Fatalf("expected missing path to report false")
	}
}
