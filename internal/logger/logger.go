// Package logger builds the slog loggers used by each command.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alkime/voxrelay/internal/config"
)

// Format selects the slog handler.
type Format int

const (
	// FormatText is for humans at a terminal.
	FormatText Format = iota
	// FormatJSON is for the server.
	FormatJSON
)

// Level determines the log level from the configured environment.
func Level(cfg *config.Config) slog.Level {
	if cfg.Env == config.EnvDevelopment {
		return slog.LevelDebug
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return slog.LevelInfo
	}

	return level
}

// New creates a logger writing to w and makes it the default.
func New(cfg *config.Config, w io.Writer, format Format) *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	opts := &slog.HandlerOptions{
		Level: Level(cfg),
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// SetupLogger configures the JSON logger used by the server.
func SetupLogger(cfg *config.Config) *slog.Logger {
	return New(cfg, os.Stdout, FormatJSON)
}

// ForTUI returns a logger that stays off the terminal: it appends to
// cfg.LogFile when set and discards everything otherwise. The returned
// close function must be called on exit.
func ForTUI(cfg *config.Config) (*slog.Logger, func() error, error) {
	if cfg.LogFile == "" {
		logger := slog.New(slog.DiscardHandler)
		slog.SetDefault(logger)

		return logger, func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return New(cfg, f, FormatText), f.Close, nil
}
