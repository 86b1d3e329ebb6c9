package root

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the run's logger: text on stderr, or JSON into a rotating
// file when logFile is set. Every record carries the run_id.
func newLogger(stderr io.Writer, level, logFile string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var (
		handler slog.Handler
		closer  io.Closer = nopCloser{}
	)
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		handler = slog.NewJSONHandler(rotating, opts)
		closer = rotating
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}
	return slog.New(handler).With("run_id", uuid.NewString()), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
