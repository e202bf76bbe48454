package config

import (
	"fmt"
	"io"
	"log/slog"
)

// NewLogger создает slog.Logger по настройкам log.level и log.format
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", l.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log.format %q (text, json)", l.Format)
	}
}
