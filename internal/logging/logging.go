// Package logging builds the slog loggers used by the CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type Config struct {
	Level   string
	Format  string
	NoColor bool
	Writer  io.Writer
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
	return lvl, nil
}

// New returns a logger writing text through tint or JSON through slog.
func New(cfg Config) (*slog.Logger, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if cfg.Level != "" {
		var err error
		if level, err = ParseLevel(cfg.Level); err != nil {
			return nil, err
		}
	}

	switch cfg.Format {
	case "", "text":
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
}

// Discard drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
