package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"cloudeng.io/logging/ctxlog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	logger   *slog.Logger
	minLevel = new(slog.LevelVar)
)

func init() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))
}

// ParseLevel maps a config/flag string (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	case "":
		return LevelInfo, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure replaces the global logger. format is "text" (default) or
// "json".
func Configure(w io.Writer, l Level, format string) error {
	opts := &slog.HandlerOptions{Level: minLevel}
	var h slog.Handler
	switch format {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()
	SetLevel(l)
	return nil
}

func SetLevel(l Level) {
	minLevel.Set(l.slog())
}

// Logger returns the global logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	Logger().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Logger().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	Logger().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// err always comes first so it lines up across log lines.
	extended := append([]any{"err", err}, kv...)
	Logger().Error(msg, extended...)
}

// NewContext returns ctx carrying the global logger decorated with kv.
func NewContext(ctx context.Context, kv ...any) context.Context {
	return ctxlog.WithLogger(ctx, Logger().With(kv...))
}

// FromContext returns the logger carried by ctx. Contexts that never went
// through NewContext get a logger that discards everything.
func FromContext(ctx context.Context) *slog.Logger {
	return ctxlog.Logger(ctx)
}

// ErrorContext logs through the context logger, err first.
func ErrorContext(ctx context.Context, msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	FromContext(ctx).ErrorContext(ctx, msg, extended...)
}
