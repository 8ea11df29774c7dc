package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	// Codec selects how table events are encoded: "json", "msgpack" or "proto".
	Codec string `json:"codec" yaml:"codec"`

	AllowAutoCreateTables bool     `json:"allowAutoCreateTables" yaml:"allowAutoCreateTables"`
	DefaultTableName      string   `json:"defaultTableName" yaml:"defaultTableName"`
	TableNameRegex        string   `json:"tableNameRegex" yaml:"tableNameRegex"`
	MaxTables             int      `json:"maxTables" yaml:"maxTables"`
	AllowedTables         []string `json:"allowedTables" yaml:"allowedTables"`

	Log     logpkg.Config `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Runtime adds Go runtime and process collectors.
	Runtime bool `json:"runtime" yaml:"runtime"`
}

// Default returns built-in defaults. DataDir is left empty so callers can
// fall back to DefaultDataDir.
func Default() Config {
	return Config{
		Fsync:                 "interval",
		FsyncIntervalMs:       5,
		Codec:                 "json",
		AllowAutoCreateTables: true,
		DefaultTableName:      "default",
		TableNameRegex:        "[a-z0-9-_]{1,64}",
		Log:                   logpkg.Config{Level: "info", Format: "text"},
		Metrics:               MetricsConfig{Enabled: true},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Fsync) {
	case "", "always", "interval", "never":
	default:
		errs = append(errs, fmt.Errorf("fsync: unknown mode %q", c.Fsync))
	}
	if c.FsyncIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("fsyncIntervalMs: must be >= 0, got %d", c.FsyncIntervalMs))
	}
	switch c.Codec {
	case "json", "msgpack", "proto":
	default:
		errs = append(errs, fmt.Errorf("codec: unknown codec %q", c.Codec))
	}
	if c.MaxTables < 0 {
		errs = append(errs, fmt.Errorf("maxTables: must be >= 0, got %d", c.MaxTables))
	}
	re, err := c.TableNamePattern()
	if err != nil {
		errs = append(errs, fmt.Errorf("tableNameRegex: %w", err))
	} else if c.DefaultTableName != "" && !re.MatchString(c.DefaultTableName) {
		errs = append(errs, fmt.Errorf("defaultTableName: %q does not match %s", c.DefaultTableName, c.TableNameRegex))
	}
	if _, err := logpkg.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// TableNamePattern compiles TableNameRegex anchored to the whole name.
func (c Config) TableNamePattern() (*regexp.Regexp, error) {
	expr := c.TableNameRegex
	if expr == "" {
		expr = Default().TableNameRegex
	}
	return regexp.Compile("^(?:" + expr + ")$")
}
