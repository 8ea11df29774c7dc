package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays PARASOL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PARASOL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PARASOL_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("PARASOL_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("PARASOL_CODEC"); v != "" {
		cfg.Codec = v
	}
	if v := os.Getenv("PARASOL_ALLOW_AUTO_CREATE_TABLES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowAutoCreateTables = b
		}
	}
	if v := os.Getenv("PARASOL_DEFAULT_TABLE_NAME"); v != "" {
		cfg.DefaultTableName = v
	}
	if v := os.Getenv("PARASOL_TABLE_NAME_REGEX"); v != "" {
		cfg.TableNameRegex = v
	}
	if v := os.Getenv("PARASOL_MAX_TABLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTables = n
		}
	}
	if v := os.Getenv("PARASOL_ALLOWED_TABLES"); v != "" {
		cfg.AllowedTables = nil
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.AllowedTables = append(cfg.AllowedTables, p)
			}
		}
	}
	if v := os.Getenv("PARASOL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PARASOL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PARASOL_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
