// Package config provides loading and environment overlay for parasol
// runtime configuration. It exposes a Default() baseline, JSON or YAML file
// loading, PARASOL_* environment overrides and validation.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/parasol.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
