// Package audit records the outcome of finished goals for later
// inspection. A Sink never sees an in-flight goal — only ones that
// have already reached DONE — so it cannot be used to resume state
// across a process restart; it is a one-way log, not a checkpoint.
package audit

import "time"

// Record is one goal's terminal outcome.
type Record struct {
	GoalID       string
	Action       string
	SubmittedAt  time.Time
	FinishedAt   time.Time
	TerminalCode uint8
	TerminalText string
}

// Sink persists Records. Implementations must make Record safe to
// call from multiple goroutines; a manager calls it once per goal,
// the moment that goal's CSM reaches DONE.
type Sink interface {
	Record(Record) error
}

// Discard is a Sink that keeps nothing, for callers that don't want
// an audit trail.
type Discard struct{}

func (Discard) Record(Record) error { return nil }
