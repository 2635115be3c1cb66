package csm

import (
	"testing"
	"time"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/spec"
)

// testHandle is a fixed-active Handle for tests that don't exercise
// shutdown gating.
type testHandle struct{ active bool }

func (h testHandle) Active() bool { return h.active }

func testSpec(t *testing.T) *spec.ActionSpec[string, string, string] {
	t.Helper()
	sp, err := spec.New(spec.Names{
		Action:         "TestAction",
		ActionFeedback: "TestActionFeedback",
		ActionGoal:     "TestActionGoal",
		ActionResult:   "TestActionResult",
		Feedback:       "TestFeedback",
		Goal:           "TestGoal",
		Result:         "TestResult",
	}, spec.Funcs[string, string, string]{
		GoalOf:           func(g actionmsgs.ActionGoal[string]) string { return g.Goal },
		ResultOf:         func(r actionmsgs.ActionResult[string]) string { return r.Result },
		FeedbackOf:       func(f actionmsgs.ActionFeedback[string]) string { return f.Feedback },
		GoalIDOf:         func(g actionmsgs.ActionGoal[string]) actionmsgs.GoalID { return g.GoalID },
		StatusOfFeedback: func(f actionmsgs.ActionFeedback[string]) actionmsgs.GoalStatus { return f.Status },
		StatusOfResult:   func(r actionmsgs.ActionResult[string]) actionmsgs.GoalStatus { return r.Status },
		NewActionGoal: func(g string, stamp time.Time, id actionmsgs.GoalID) actionmsgs.ActionGoal[string] {
			return actionmsgs.ActionGoal[string]{Header: actionmsgs.Header{Stamp: stamp}, GoalID: id, Goal: g}
		},
		NewActionFeedback: func(f string, stamp time.Time, status actionmsgs.GoalStatus) actionmsgs.ActionFeedback[string] {
			return actionmsgs.ActionFeedback[string]{Header: actionmsgs.Header{Stamp: stamp}, Status: status, Feedback: f}
		},
		NewActionResult: func(r string, stamp time.Time, status actionmsgs.GoalStatus) actionmsgs.ActionResult[string] {
			return actionmsgs.ActionResult[string]{Header: actionmsgs.Header{Stamp: stamp}, Status: status, Result: r}
		},
	})
	if err != nil {
		t.Fatalf("building test spec: %v", err)
	}
	return sp
}

func newTestCSM(t *testing.T) (*CSM[string, string, string], *[]actionmsgs.CommState) {
	t.Helper()
	sp := testSpec(t)
	id := actionmsgs.GoalID{ID: "g1"}
	goal := sp.NewActionGoal("do-thing", time.Now(), id)

	var seen []actionmsgs.CommState
	cb := Callbacks[string, string]{
		OnTransition: func(h Handle, state actionmsgs.CommState, status actionmsgs.GoalStatus, result *string) {
			seen = append(seen, state)
		},
	}
	return New(goal, cb, sp, nil), &seen
}

func statusArray(id actionmsgs.GoalID, s actionmsgs.GoalStatusEnum) actionmsgs.GoalStatusArray {
	return actionmsgs.GoalStatusArray{StatusList: []actionmsgs.GoalStatus{{GoalID: id, Status: s}}}
}

// S1: happy path PENDING -> ACTIVE -> SUCCEEDED (via result).
func TestHappyPathToSucceeded(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusPending), h)
	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusActive), h)

	result := actionmsgs.ActionResult[string]{
		Status: actionmsgs.GoalStatus{GoalID: m.GoalID(), Status: actionmsgs.StatusSucceeded},
		Result: "done",
	}
	m.UpdateResult(result, h)

	want := []actionmsgs.CommState{actionmsgs.Pending, actionmsgs.Active, actionmsgs.WaitingForResult, actionmsgs.Done}
	if !equalStates(*seen, want) {
		t.Fatalf("transitions = %v, want %v", *seen, want)
	}
	if got := m.CommState(); got != actionmsgs.Done {
		t.Fatalf("CommState = %v, want DONE", got)
	}
	ts := m.TerminalState()
	if ts.State != actionmsgs.TerminalSucceeded {
		t.Fatalf("TerminalState = %v, want SUCCEEDED", ts.State)
	}
	res, ok := m.Result()
	if !ok || res != "done" {
		t.Fatalf("Result = (%q, %v), want (\"done\", true)", res, ok)
	}
}

// Goal ack skipped straight to SUCCEEDED collapses through the
// implied ACTIVE/WAITING_FOR_RESULT hops in one call.
func TestSkippedAckCollapsesTransitions(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusSucceeded), h)

	want := []actionmsgs.CommState{actionmsgs.Active, actionmsgs.WaitingForResult}
	if !equalStates(*seen, want) {
		t.Fatalf("transitions = %v, want %v", *seen, want)
	}
}

// Illegal transition (PENDING seen again after ACTIVE) is
// rejected and leaves state untouched.
func TestIllegalTransitionIsRejected(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusActive), h)
	*seen = nil

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusPending), h)

	if len(*seen) != 0 {
		t.Fatalf("expected no transition on illegal status, got %v", *seen)
	}
	if got := m.CommState(); got != actionmsgs.Active {
		t.Fatalf("CommState = %v, want ACTIVE (unchanged)", got)
	}
}

// S3: goal id disappears from a status array while active; CSM
// synthesizes LOST and jumps straight to DONE.
func TestMissingStatusSynthesizesLost(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusActive), h)
	*seen = nil

	other := actionmsgs.GoalID{ID: "someone-else"}
	m.UpdateStatus(statusArray(other, actionmsgs.StatusActive), h)

	want := []actionmsgs.CommState{actionmsgs.Done}
	if !equalStates(*seen, want) {
		t.Fatalf("transitions = %v, want %v", *seen, want)
	}
	ts := m.TerminalState()
	if ts.State != actionmsgs.TerminalLost {
		t.Fatalf("TerminalState = %v, want LOST", ts.State)
	}
}

// Once DONE, further status updates are ignored entirely.
func TestDoneIsSticky(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	m.UpdateResult(actionmsgs.ActionResult[string]{
		Status: actionmsgs.GoalStatus{GoalID: m.GoalID(), Status: actionmsgs.StatusSucceeded},
	}, h)
	*seen = nil

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusAborted), h)
	if len(*seen) != 0 {
		t.Fatalf("expected no transition once DONE, got %v", *seen)
	}
	if got := m.CommState(); got != actionmsgs.Done {
		t.Fatalf("CommState = %v, want DONE (unchanged)", got)
	}
}

// A result arriving before any status still drives the CSM
// through the missing intermediate hops before reaching DONE.
func TestResultBeforeAnyStatus(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	result := actionmsgs.ActionResult[string]{
		Status: actionmsgs.GoalStatus{GoalID: m.GoalID(), Status: actionmsgs.StatusAborted},
		Result: "failed",
	}
	m.UpdateResult(result, h)

	want := []actionmsgs.CommState{actionmsgs.Active, actionmsgs.WaitingForResult, actionmsgs.Done}
	if !equalStates(*seen, want) {
		t.Fatalf("transitions = %v, want %v", *seen, want)
	}
	res, ok := m.Result()
	if !ok || res != "failed" {
		t.Fatalf("Result = (%q, %v), want (\"failed\", true)", res, ok)
	}
}

// A duplicate result after DONE fires no second transition; its
// result still replaces the recorded one.
func TestDuplicateResultFiresNoTransition(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: true}

	first := actionmsgs.ActionResult[string]{
		Status: actionmsgs.GoalStatus{GoalID: m.GoalID(), Status: actionmsgs.StatusSucceeded},
		Result: "first",
	}
	m.UpdateResult(first, h)
	*seen = nil

	second := actionmsgs.ActionResult[string]{
		Status: actionmsgs.GoalStatus{GoalID: m.GoalID(), Status: actionmsgs.StatusSucceeded},
		Result: "second",
	}
	m.UpdateResult(second, h)

	if len(*seen) != 0 {
		t.Fatalf("expected no transition on duplicate result, got %v", *seen)
	}
	res, _ := m.Result()
	if res != "second" {
		t.Fatalf("Result = %q, want \"second\" (latest recorded even though DONE)", res)
	}
}

// Feedback does not move CommState and is delivered with a snapshot
// of the state it arrived in.
func TestFeedbackDoesNotTransition(t *testing.T) {
	m, _ := newTestCSM(t)
	h := testHandle{active: true}
	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusActive), h)

	var gotState actionmsgs.CommState
	var gotFeedback string
	m.callbacks.OnFeedback = func(h Handle, feedback string, state actionmsgs.CommState) {
		gotFeedback = feedback
		gotState = state
	}

	fb := actionmsgs.ActionFeedback[string]{
		Status:   actionmsgs.GoalStatus{GoalID: m.GoalID(), Status: actionmsgs.StatusActive},
		Feedback: "50%",
	}
	m.UpdateFeedback(fb, h)

	if gotFeedback != "50%" || gotState != actionmsgs.Active {
		t.Fatalf("feedback callback got (%q, %v), want (\"50%%\", ACTIVE)", gotFeedback, gotState)
	}
	if got := m.CommState(); got != actionmsgs.Active {
		t.Fatalf("CommState changed by feedback: %v", got)
	}
}

// A shut-down (inactive) handle suppresses callbacks but the CSM's
// internal state still advances.
func TestInactiveHandleSuppressesCallbacksNotState(t *testing.T) {
	m, seen := newTestCSM(t)
	h := testHandle{active: false}

	m.UpdateStatus(statusArray(m.GoalID(), actionmsgs.StatusSucceeded), h)

	if len(*seen) != 0 {
		t.Fatalf("expected no callbacks fired for inactive handle, got %v", *seen)
	}
	if got := m.CommState(); got != actionmsgs.WaitingForResult {
		t.Fatalf("CommState = %v, want WAITING_FOR_RESULT (state still advances)", got)
	}
}

func equalStates(got, want []actionmsgs.CommState) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
