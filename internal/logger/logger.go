package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New creates a logger writing JSON lines to w at the given level.
// An empty or unknown level falls back to info.
func New(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "pgrepl-tui").
		Logger()
	return &Logger{Logger: l}
}

// NewConsole creates a human-readable logger on stderr, used outside the TUI.
func NewConsole(level string) *Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, level)
}

// Open creates a logger appending to the file at path, creating parent
// directories as needed. With an empty path all output is discarded, since
// the terminal belongs to the UI.
func Open(path, level string) (*Logger, io.Closer, error) {
	if path == "" {
		return Nop(), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return New(f, level), f, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent returns a logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("component", component).Logger(),
	}
}

// WithServer returns a logger with the server profile attached
func (l *Logger) WithServer(name string, id int) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("server", name).Int("sid", id).Logger(),
	}
}
