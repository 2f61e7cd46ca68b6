package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir picks where feed data lives when no directory is
// configured. XDG_DATA_HOME wins outright; otherwise the first candidate
// whose parent exists on this host is used, ending with a dotdir in $HOME.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "logpipe")
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "data"
	}

	candidates := []struct {
		parent string
		dir    string
	}{
		{"/var/lib", "/var/lib/logpipe"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "logpipe")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "logpipe")},
	}
	for _, c := range candidates {
		if isDir(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(home, ".logpipe")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
