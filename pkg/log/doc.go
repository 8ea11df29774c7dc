// Package log provides parasol's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that feeds our formatter/outputs
// pipeline.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("index"), log.Table("orders"))
//	l.Info("index caught up", log.Uint64("seq", 42))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting JSON
// or text formatting and multiple outputs (console, file, null).
//
// # Interop
//
// RedirectStdLog sends the standard library logger (pebble's default) through
// a Logger; ToStdLogger wraps one for APIs that want *log.Logger.
package log
