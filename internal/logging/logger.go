package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/myrjola/turnabout/internal/errors"
)

var ErrUnknownLevel = errors.NewSentinel("unknown log level")

// New creates a text logger writing to w that is enriched with the attributes stored by [WithAttrs].
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	}))
	return slog.New(handler)
}

// ParseLevel maps the configuration values debug, info, warn and error to [slog.Level].
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, errors.Wrap(ErrUnknownLevel, "parse log level", slog.String("level", s))
	}
	return level, nil
}
