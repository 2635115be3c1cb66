// Package actionmsgs defines the wire-level messages exchanged
// between an action client and an action server, and the two small
// enumerations (CommState on the client side, GoalStatusEnum on the
// wire) that the rest of this module builds on.
//
// Nothing in this package depends on any particular transport or
// serialization; it only fixes shapes and equality rules.
package actionmsgs

import "time"

// GoalID identifies one goal. Equality between two GoalIDs, for the
// purpose of matching incoming messages to a goal, is on ID alone;
// Stamp is informational (it records when the ID was minted, or is
// zero on a cancel-all message).
type GoalID struct {
	ID    string    `json:"id" yaml:"id"`
	Stamp time.Time `json:"stamp" yaml:"stamp"`
}

// Header carries the timestamp every envelope message is stamped
// with.
type Header struct {
	Stamp time.Time `json:"stamp" yaml:"stamp"`
}

// GoalStatusEnum is the server-advertised status of a goal, as it
// appears on the wire. The numeric values match the historical
// actionlib_msgs/GoalStatus constants.
type GoalStatusEnum uint8

const (
	StatusPending GoalStatusEnum = iota
	StatusActive
	StatusPreempted
	StatusSucceeded
	StatusAborted
	StatusRejected
	StatusPreempting
	StatusRecalling
	StatusRecalled
	StatusLost
)

func (s GoalStatusEnum) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusActive:
		return "ACTIVE"
	case StatusPreempted:
		return "PREEMPTED"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusAborted:
		return "ABORTED"
	case StatusRejected:
		return "REJECTED"
	case StatusPreempting:
		return "PREEMPTING"
	case StatusRecalling:
		return "RECALLING"
	case StatusRecalled:
		return "RECALLED"
	case StatusLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is one of the ten defined wire codes.
func (s GoalStatusEnum) Valid() bool {
	return s <= StatusLost
}

// GoalStatus is one entry of a GoalStatusArray: the status of a
// single goal, identified by GoalID.
type GoalStatus struct {
	GoalID GoalID         `json:"goal_id" yaml:"goal_id"`
	Status GoalStatusEnum `json:"status" yaml:"status"`
	Text   string         `json:"text,omitempty" yaml:"text,omitempty"`
}

// GoalStatusArray is the periodic broadcast of every goal status the
// server currently knows about.
type GoalStatusArray struct {
	Header     Header       `json:"header" yaml:"header"`
	StatusList []GoalStatus `json:"status_list" yaml:"status_list"`
}

// Find returns the status in the array whose GoalID matches id, if
// any.
func (a GoalStatusArray) Find(id GoalID) (GoalStatus, bool) {
	for _, s := range a.StatusList {
		if s.GoalID.ID == id.ID {
			return s, true
		}
	}
	return GoalStatus{}, false
}

// ActionGoal wraps a user goal of type G with the header and GoalID
// every action envelope carries.
type ActionGoal[G any] struct {
	Header Header `json:"header" yaml:"header"`
	GoalID GoalID `json:"goal_id" yaml:"goal_id"`
	Goal   G      `json:"goal" yaml:"goal"`
}

// ActionFeedback wraps a user feedback message of type F with the
// status of the goal it was produced for.
type ActionFeedback[F any] struct {
	Header   Header     `json:"header" yaml:"header"`
	Status   GoalStatus `json:"status" yaml:"status"`
	Feedback F          `json:"feedback" yaml:"feedback"`
}

// ActionResult wraps a user result message of type R with the
// terminal status of the goal it concludes.
type ActionResult[R any] struct {
	Header Header     `json:"header" yaml:"header"`
	Status GoalStatus `json:"status" yaml:"status"`
	Result R          `json:"result" yaml:"result"`
}

// CommState is the client-side view of a goal's progress. It is
// distinct from GoalStatusEnum: several server statuses can collapse
// into (or pass through) the same CommState, and the client only
// ever sees these eight values.
type CommState uint8

const (
	WaitingForGoalAck CommState = iota
	Pending
	Active
	WaitingForResult
	WaitingForCancelAck
	Recalling
	Preempting
	Done
)

func (s CommState) String() string {
	switch s {
	case WaitingForGoalAck:
		return "WAITING_FOR_GOAL_ACK"
	case Pending:
		return "PENDING"
	case Active:
		return "ACTIVE"
	case WaitingForResult:
		return "WAITING_FOR_RESULT"
	case WaitingForCancelAck:
		return "WAITING_FOR_CANCEL_ACK"
	case Recalling:
		return "RECALLING"
	case Preempting:
		return "PREEMPTING"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// TerminalStateEnum is the outcome recorded once a CSM reaches Done.
type TerminalStateEnum uint8

const (
	TerminalRecalled TerminalStateEnum = iota
	TerminalRejected
	TerminalPreempted
	TerminalSucceeded
	TerminalAborted
	TerminalLost
)

func (s TerminalStateEnum) String() string {
	switch s {
	case TerminalRecalled:
		return "RECALLED"
	case TerminalRejected:
		return "REJECTED"
	case TerminalPreempted:
		return "PREEMPTED"
	case TerminalSucceeded:
		return "SUCCEEDED"
	case TerminalAborted:
		return "ABORTED"
	case TerminalLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// TerminalState is the terminal outcome of a goal, plus whatever
// human-readable text the server attached to the status that
// produced it.
type TerminalState struct {
	State TerminalStateEnum
	Text  string
}

// terminalFor maps a server status to the TerminalState it produces
// when a CSM reaches Done. ok is false for statuses that are never
// terminal (PENDING, ACTIVE, PREEMPTING, RECALLING): asking for a
// terminal state derived from one of those is a caller error.
func terminalFor(s GoalStatusEnum) (TerminalStateEnum, bool) {
	switch s {
	case StatusPreempted:
		return TerminalPreempted, true
	case StatusSucceeded:
		return TerminalSucceeded, true
	case StatusAborted:
		return TerminalAborted, true
	case StatusRejected:
		return TerminalRejected, true
	case StatusRecalled:
		return TerminalRecalled, true
	case StatusLost:
		return TerminalLost, true
	default:
		return TerminalLost, false
	}
}

// TerminalStateOf derives the TerminalState from the given
// GoalStatus, following the mapping in §4.4.3. ok is false when
// status.Status is not a terminal status; the caller queried too
// early or the CSM is inconsistent, and TerminalLost is returned as
// the safe default.
func TerminalStateOf(status GoalStatus) (TerminalState, bool) {
	state, ok := terminalFor(status.Status)
	return TerminalState{State: state, Text: status.Text}, ok
}
