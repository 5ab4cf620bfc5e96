package cfimages

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Logger is the capability the client logs through. Any object with
// these five leveled functions can be supplied; logging is a pure side
// channel and never affects a call's outcome.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. It is the default when ClientOptions
// carries no logger.
type NopLogger struct{}

func (NopLogger) Trace(string, ...any) {}
func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// slogLogger adapts a *slog.Logger. Trace maps to a level below
// slog.LevelDebug, matching slog's numeric level scheme.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l as a Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	return slogLogger{l: l}
}

const levelTrace = slog.LevelDebug - 4

func (s slogLogger) Trace(msg string, args ...any) {
	s.l.Log(context.Background(), levelTrace, msg, args...)
}
func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// zerologLogger adapts a zerolog.Logger. args are alternating
// key/value pairs, as with slog.
type zerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps l as a Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return zerologLogger{l: l}
}

func (z zerologLogger) Trace(msg string, args ...any) { emit(z.l.Trace(), msg, args) }
func (z zerologLogger) Debug(msg string, args ...any) { emit(z.l.Debug(), msg, args) }
func (z zerologLogger) Info(msg string, args ...any)  { emit(z.l.Info(), msg, args) }
func (z zerologLogger) Warn(msg string, args ...any)  { emit(z.l.Warn(), msg, args) }
func (z zerologLogger) Error(msg string, args ...any) { emit(z.l.Error(), msg, args) }

func emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
