// Package logger is a thin zerolog wrapper whose fields travel in the
// request context, so handlers, services and workers all log with the same
// request_id / user_id without threading a logger through every call.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to warnings too; errors always get one.
	WarnStack bool
	Output    io.Writer
	Format    string
}

type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

type fieldsKey struct{}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	if strings.EqualFold(opts.Format, FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	root := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{root: root, warnStack: opts.WarnStack}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{root: zerolog.Nop()}
}

// ParseLevel maps HARDWARE_LOG_LEVEL to a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) entry(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(fieldsKey{}).(zerolog.Logger); ok {
			return scoped
		}
	}
	return l.root
}

func (l *Logger) scope(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := build(l.entry(ctx).With()).Logger()
	return context.WithValue(ctx, fieldsKey{}, scoped)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.scope(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.scope(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	e := l.entry(ctx)
	e.Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	e := l.entry(ctx)
	e.Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	e := l.entry(ctx)
	ev := e.Warn()
	if l.warnStack {
		ev = ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	e := l.entry(ctx)
	e.Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
