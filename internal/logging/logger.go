// Package logging builds the zap loggers used across codemend.
// There is no process-wide logger: New returns a root logger that callers
// inject, and For derives a named child per subsystem category.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // CLI startup, config loading
	CategorySource  Category = "source"  // Issue discovery (linters, compilers)
	CategoryBackend Category = "backend" // Backend chain, LLM and command backends
	CategoryCache   Category = "cache"   // Answer cache stores
	CategoryMerge   Category = "merge"   // Fuzzy merge decisions
	CategoryTarget  Category = "target"  // Diff target transactions
	CategoryResolve Category = "resolve" // Issue resolution loop
	CategoryTactile Category = "tactile" // Command execution
	CategoryWorld   Category = "world"   // Tree-sitter block lookup
	CategoryWatch   Category = "watch"   // File watching
)

// Options controls how New builds the root logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string // optional path; stderr when empty
}

// New builds a root logger from opts.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{opts.File}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// For returns the category logger derived from logger. A nil logger yields a
// no-op logger so components can be constructed without logging in tests.
func For(logger *zap.Logger, cat Category) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(string(cat))
}
