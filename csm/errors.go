package csm

// These errors are all non-fatal: a CommStateMachine absorbs and
// logs them and keeps operating. They exist as typed values so a
// Logger (or a test) can distinguish them without parsing strings.

import "github.com/ros2go/actionlib/actionmsgs"

// ProtocolViolation occurs when the server reports a status that is
// not a legal follow-on to the CSM's current CommState (e.g. ACTIVE
// after PENDING is fine, but PENDING after ACTIVE is not). The CSM's
// state is left unchanged.
type ProtocolViolation struct {
	GoalID string
	From   actionmsgs.CommState
	Status actionmsgs.GoalStatusEnum
}

func (e *ProtocolViolation) Error() string {
	return "actionlib: goal " + e.GoalID + ": invalid transition from '" +
		e.From.String() + "' on status '" + e.Status.String() + "'"
}

// UnknownStatusCode occurs when the server reports a status value
// this CSM does not have a table entry for, either because it is
// outside 0..9 or because it is LOST (which a real server should
// never send; LOST is synthesized locally, never received).
type UnknownStatusCode struct {
	GoalID string
	From   actionmsgs.CommState
	Status actionmsgs.GoalStatusEnum
}

func (e *UnknownStatusCode) Error() string {
	return "actionlib: goal " + e.GoalID + ": unexpected status '" +
		e.Status.String() + "' while in '" + e.From.String() + "'"
}

// DuplicateTerminal occurs when a second ActionResult arrives for a
// goal whose CSM is already Done. CommState stays Done and no
// transition fires; the later result and its status still replace
// the recorded ones before this error is logged.
type DuplicateTerminal struct {
	GoalID string
}

func (e *DuplicateTerminal) Error() string {
	return "actionlib: goal " + e.GoalID + ": got a result while already DONE"
}

// Misuse occurs when a GoalHandle operation is invoked after the
// handle has been shut down, or when TerminalState is queried while
// the latest status is missing or not a terminal one. (Querying
// TerminalState before Done with a terminal latest status only logs a
// warning.)
type Misuse struct {
	GoalID string
	Detail string
}

func (e *Misuse) Error() string {
	return "actionlib: goal " + e.GoalID + ": " + e.Detail
}
