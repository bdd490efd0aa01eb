// Package logging wraps zerolog with the child-context chaining and
// recursive secret redaction the gateway needs everywhere a turn,
// session, or config value is logged. Modeled on the zerolog wrapper
// in the voice-agent sibling example (WithComponent/WithRequestID
// style helpers), generalized into a dependency-injected Logger
// rather than a package-level singleton so tests can construct their
// own instance against a buffer.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin, redaction-aware wrapper around zerolog.Logger.
// Every With* method returns a new Logger carrying extended context;
// none of them mutate the receiver.
type Logger struct {
	z zerolog.Logger
}

// New builds a root logger. When pretty is true, output is a
// human-readable console writer (development); otherwise it emits
// one JSON object per line (production), matching the dev/prod split
// in the logger this is grounded on.
func New(pretty bool) Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

// NewTo builds a root logger writing JSON lines to an arbitrary
// writer, used by tests that want to assert on log output.
func NewTo(w io.Writer) Logger {
	return Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

// With returns a child logger with one extra string field, its value
// passed through redaction before it reaches zerolog's writer.
func (l Logger) With(key, value string) Logger {
	return Logger{z: l.z.With().Str(key, redactValue(key, value)).Logger()}
}

// WithTurn binds turnId into the child logger context, mirroring the
// orchestrator's "each step logs with {turnId} bound" requirement.
func (l Logger) WithTurn(turnId string) Logger {
	return l.With("turnId", turnId)
}

// WithSession binds sessionKey into the child logger context.
func (l Logger) WithSession(sessionKey string) Logger {
	return l.With("sessionKey", sessionKey)
}

func (l Logger) Info(msg string)                 { l.z.Info().Msg(msg) }
func (l Logger) Debug(msg string)                { l.z.Debug().Msg(msg) }
func (l Logger) Warn(msg string)                 { l.z.Warn().Msg(msg) }
func (l Logger) Error(err error, msg string) {
	l.z.Error().Err(redactErr(err)).Msg(msg)
}

// InfoFields logs msg with a set of fields, each redacted by key
// before being written — the structural enforcement spec §7 and §9
// require ("the logger enforces this structurally").
func (l Logger) InfoFields(msg string, fields map[string]string) {
	ev := l.z.Info()
	for k, v := range fields {
		ev = ev.Str(k, redactValue(k, v))
	}
	ev.Msg(msg)
}

func (l Logger) ErrorFields(err error, msg string, fields map[string]string) {
	ev := l.z.Error().Err(redactErr(err))
	for k, v := range fields {
		ev = ev.Str(k, redactValue(k, v))
	}
	ev.Msg(msg)
}
