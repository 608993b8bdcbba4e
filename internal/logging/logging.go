// Package logging builds the zap loggers used by the runtime, the built-in
// filter-sets and the host harness.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrUnknownLevel is returned by ParseLevel for unrecognised names.
var ErrUnknownLevel = errors.New("unknown log level")

// Config configures a logger.
type Config struct {
	// Level is the minimum level written.
	Level zapcore.Level

	// File is the path logs are appended to. Empty means stderr.
	File string

	// Development selects the human-readable console encoder.
	Development bool
}

// ParseLevel parses a level name, ignoring case.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// New builds a logger from cfg. The returned func closes the log file and
// must be called once the logger is no longer used.
func New(cfg Config) (*zap.Logger, func(), error) {
	out := "stderr"
	if cfg.File != "" {
		out = cfg.File
	}
	sink, closeOut, err := zap.Open(out)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output %s: %w", out, err)
	}

	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if cfg.Development {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	logger := zap.New(zapcore.NewCore(enc, sink, cfg.Level),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return logger, closeOut, nil
}

// NewWriter returns a console logger writing to w.
func NewWriter(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}
