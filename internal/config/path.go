package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory for the host. XDG_DATA_HOME
// wins when set; otherwise the first existing platform location is used, with
// ~/.parasol as the fallback and ./data when there is no home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "parasol")
	}

	candidates := []struct{ parent, dir string }{
		{"/var/lib", "/var/lib/parasol"},
		{filepath.Join(homeDir, "Library"), filepath.Join(homeDir, "Library", "Application Support", "Parasol")},
		{filepath.Join(homeDir, "AppData"), filepath.Join(homeDir, "AppData", "Local", "Parasol")},
	}
	for _, c := range candidates {
		if isDir(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(homeDir, ".parasol")
}

// ResolveDataDir returns cfg.DataDir (or DefaultDataDir when empty) and makes
// sure the directory exists.
func ResolveDataDir(cfg Config) (string, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = DefaultDataDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
