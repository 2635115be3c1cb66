// Package logging wraps zerolog into the small Logger surface csm
// and manager need, replacing the teacher's on/off util.Logf switch
// with structured, leveled output that a deployed daemon can filter
// and ship.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ros2go/actionlib/csm"
)

// Logger adapts a zerolog.Logger to csm.Logger. It is also used
// directly by manager and the cmd/ binaries for their own log lines.
type Logger struct {
	zl zerolog.Logger
}

var _ csm.Logger = (*Logger)(nil)

// New builds a Logger writing to w in zerolog's console format,
// tagged with component. Pass os.Stderr for interactive use; a
// daemon typically passes its stdout for JSON-line log collection
// instead (see NewJSON).
func New(w io.Writer, component string) *Logger {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w}).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// NewJSON builds a Logger emitting one JSON object per line, the
// format a log-shipping pipeline expects.
func NewJSON(w io.Writer, component string) *Logger {
	zl := zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// Default is a console Logger writing to stderr, tagged "actionlib".
func Default() *Logger {
	return New(os.Stderr, "actionlib")
}

func (l *Logger) Debugf(goalID, format string, args ...interface{}) {
	l.zl.Debug().Str("goal_id", goalID).Msgf(format, args...)
}

func (l *Logger) Warnf(goalID, format string, args ...interface{}) {
	l.zl.Warn().Str("goal_id", goalID).Msgf(format, args...)
}

func (l *Logger) Errorf(goalID string, err error) {
	l.zl.Error().Str("goal_id", goalID).Err(err).Send()
}

// Infof is used outside the csm.Logger surface, by manager and the
// cmd/ tools, for lifecycle events that aren't tied to one goal.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// With returns a Logger carrying an extra structured field, useful
// for tagging a sub-component (e.g. a specific action name).
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}
