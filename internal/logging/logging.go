// Package logging provides the process-wide structured logger.
package logging

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Config controls how the global logger is constructed.
type Config struct {
	Level   string
	Pretty  bool
	Service string
}

var levelsByName = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// box holds the current global logger behind an atomic pointer, so Ctx
// and L never contend on a mutex once Init has run.
var (
	box      atomic.Value
	initOnce sync.Once
)

func init() {
	box.Store(zerolog.New(os.Stderr).With().Timestamp().Logger())
}

// New builds a standalone logger from cfg without touching the global.
func New(cfg Config) zerolog.Logger {
	logger := zerolog.New(writerFor(cfg.Pretty)).Level(levelFor(cfg.Level)).With().Timestamp().Logger()
	if cfg.Service != "" {
		logger = logger.With().Str("service", cfg.Service).Logger()
	}
	return logger
}

func writerFor(pretty bool) io.Writer {
	if pretty {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return os.Stderr
}

func levelFor(s string) zerolog.Level {
	if lvl, ok := levelsByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// Init sets the global logger exactly once and bridges the stdlib logger
// into it so any vendored code that still calls log.Print lands in the
// structured sink.
func Init(cfg Config) {
	initOnce.Do(func() {
		logger := New(cfg)
		box.Store(logger)
		stdlog.SetOutput(logger.With().Str("source", "stdlog").Logger())
	})
}

// L returns the global logger.
func L() zerolog.Logger {
	return box.Load().(zerolog.Logger)
}

type ctxKey struct{}

// WithLogger attaches logger to ctx, so a caller several layers deep in
// a publication can pick up request-scoped fields without threading a
// logger through every function signature.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the logger attached to ctx, or the global logger if none
// was attached.
func Ctx(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return L()
}
