// Package csm implements the Communication State Machine: the
// per-goal tracker that interprets a server's advertised status
// against the goal's locally known CommState, fires user callbacks
// on observable transitions, and answers queries about a goal's
// progress and outcome.
//
// One CSM exists per live goal. It is created by a manager.Manager
// when a goal is submitted and is driven exclusively through
// UpdateStatus, UpdateFeedback, and UpdateResult, called as messages
// arrive from the transport, plus TransitionTo, called directly by
// client.GoalHandle.Cancel and manager.Manager.CancelAllGoals on
// user-initiated cancel.
package csm

import (
	"sync"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/spec"
)

// Handle is the minimal view a CSM needs of its owning GoalHandle: is
// it still active. client.GoalHandle implements this; the CSM never
// needs to import the client package to check it.
type Handle interface {
	Active() bool
}

// Logger is the small subset of structured logging a CSM needs. See
// observability/logging for the zerolog-backed implementation used
// outside tests.
type Logger interface {
	Debugf(goalID, format string, args ...interface{})
	Warnf(goalID, format string, args ...interface{})
	Errorf(goalID string, err error)
}

// NopLogger discards everything. It is the fallback used across this
// module (csm, client, manager) wherever a nil Logger is passed in.
type NopLogger struct{}

func (NopLogger) Debugf(string, string, ...interface{}) {}
func (NopLogger) Warnf(string, string, ...interface{})  {}
func (NopLogger) Errorf(string, error)                  {}

// TransitionFunc is called synchronously, under the CSM's lock, every
// time the CSM enters a new CommState. state, status, and result are
// a consistent snapshot taken at the moment of the transition; result
// is non-nil only when state is Done and a result has already been
// recorded.
//
// Because it runs under the CSM's lock, a TransitionFunc must not
// call back into any method of the Handle it is passed (or of the
// GoalHandle wrapping it) that touches this same CSM — Go's
// sync.Mutex is not reentrant. Use the state/status/result values
// passed in instead of, say, calling handle.Result() from inside this
// function; that accessor is for use from other goroutines or after
// this function returns.
type TransitionFunc[R any] func(h Handle, state actionmsgs.CommState, status actionmsgs.GoalStatus, result *R)

// FeedbackFunc is called synchronously, under the CSM's lock, for
// every feedback message that matches this goal. The same reentrancy
// caveat as TransitionFunc applies.
type FeedbackFunc[F any] func(h Handle, feedback F, state actionmsgs.CommState)

// Callbacks bundles the two observers a CSM may report to. Either or
// both may be nil.
type Callbacks[F any, R any] struct {
	OnTransition TransitionFunc[R]
	OnFeedback   FeedbackFunc[F]
}

// CSM is a Communication State Machine for one goal.
type CSM[G any, F any, R any] struct {
	spec       *spec.ActionSpec[G, F, R]
	callbacks  Callbacks[F, R]
	logger     Logger
	actionGoal actionmsgs.ActionGoal[G]
	goalID     actionmsgs.GoalID

	mu           sync.Mutex
	commState    actionmsgs.CommState
	latestStatus *actionmsgs.GoalStatus
	latestResult *actionmsgs.ActionResult[R]
}

// New creates a CSM for actionGoal, initially in WaitingForGoalAck.
// callbacks may be a zero value if the caller wants no notifications.
// If logger is nil, log calls are discarded.
func New[G any, F any, R any](
	actionGoal actionmsgs.ActionGoal[G],
	callbacks Callbacks[F, R],
	sp *spec.ActionSpec[G, F, R],
	logger Logger,
) *CSM[G, F, R] {
	if logger == nil {
		logger = NopLogger{}
	}
	return &CSM[G, F, R]{
		spec:       sp,
		callbacks:  callbacks,
		logger:     logger,
		actionGoal: actionGoal,
		goalID:     sp.GoalIDOf(actionGoal),
		commState:  actionmsgs.WaitingForGoalAck,
	}
}

// ActionGoal returns the envelope this CSM was created with,
// retained verbatim for Resend and Cancel.
func (m *CSM[G, F, R]) ActionGoal() actionmsgs.ActionGoal[G] {
	return m.actionGoal
}

// GoalID returns the id this CSM matches incoming messages against.
func (m *CSM[G, F, R]) GoalID() actionmsgs.GoalID {
	return m.goalID
}

// CommState returns the current state.
func (m *CSM[G, F, R]) CommState() actionmsgs.CommState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commState
}

// GoalStatus returns the last GoalStatus observed for this goal, and
// whether one has arrived yet.
func (m *CSM[G, F, R]) GoalStatus() (actionmsgs.GoalStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestStatus == nil {
		return actionmsgs.GoalStatus{}, false
	}
	return *m.latestStatus, true
}

// Result returns the unwrapped result, if one has been recorded.
// Per the invariant in §3, this is non-empty only when CommState is
// Done.
func (m *CSM[G, F, R]) Result() (R, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero R
	if m.latestResult == nil {
		return zero, false
	}
	return m.spec.ResultOf(*m.latestResult), true
}

// TerminalState is defined only once CommState is Done; see
// actionmsgs.TerminalStateOf for the mapping and its LOST fallback.
func (m *CSM[G, F, R]) TerminalState() actionmsgs.TerminalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminalStateLocked()
}

func (m *CSM[G, F, R]) terminalStateLocked() actionmsgs.TerminalState {
	if m.commState != actionmsgs.Done {
		m.logger.Warnf(m.goalID.ID, "terminal state requested while in '%s'", m.commState)
	}
	if m.latestStatus == nil {
		m.logger.Errorf(m.goalID.ID, &Misuse{GoalID: m.goalID.ID, Detail: "terminal state requested with no status yet"})
		return actionmsgs.TerminalState{State: actionmsgs.TerminalLost}
	}
	ts, ok := actionmsgs.TerminalStateOf(*m.latestStatus)
	if !ok {
		m.logger.Errorf(m.goalID.ID, &Misuse{
			GoalID: m.goalID.ID,
			Detail: "terminal state requested but latest status is '" + m.latestStatus.Status.String() + "'",
		})
	}
	return ts
}

// UpdateStatus matches gsa against this CSM's goal id and drives the
// transition table in §4.4.1. handle is passed through to callbacks
// unchanged; it is nil-safe (a nil handle is treated as always
// active).
func (m *CSM[G, F, R]) UpdateStatus(gsa actionmsgs.GoalStatusArray, handle Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateStatusLocked(gsa, handle)
}

func (m *CSM[G, F, R]) updateStatusLocked(gsa actionmsgs.GoalStatusArray, handle Handle) {
	status, found := gsa.Find(m.goalID)

	// Late statuses can keep arriving after a terminal result; they
	// are irrelevant once we're Done. (See invariant 2.)
	if m.commState == actionmsgs.Done {
		return
	}

	if !found {
		if m.commState == actionmsgs.WaitingForGoalAck || m.commState == actionmsgs.WaitingForResult {
			return
		}
		m.logger.Warnf(m.goalID.ID, "no status for this goal in the array; transitioning to LOST")
		lost := actionmsgs.GoalStatus{GoalID: m.goalID, Status: actionmsgs.StatusLost}
		if m.latestStatus != nil {
			lost.Text = m.latestStatus.Text
		}
		m.latestStatus = &lost
		m.transitionToLocked(actionmsgs.Done, handle)
		return
	}

	m.latestStatus = &status

	states, err := nextStates(m.commState, status.Status, m.goalID.ID)
	if err != nil {
		m.logger.Errorf(m.goalID.ID, err)
		return
	}
	for _, s := range states {
		m.transitionToLocked(s, handle)
	}
}

// UpdateResult records the terminal result and drives the CSM to
// Done, replaying any elided intermediate transitions first so
// callback fidelity matches what a fully-observed status stream
// would have produced (§4.4.1B).
func (m *CSM[G, F, R]) UpdateResult(actionResult actionmsgs.ActionResult[R], handle Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := m.spec.StatusOfResult(actionResult)
	if status.GoalID.ID != m.goalID.ID {
		return
	}

	m.latestStatus = &status
	m.latestResult = &actionResult

	if m.commState == actionmsgs.Done {
		m.logger.Errorf(m.goalID.ID, &DuplicateTerminal{GoalID: m.goalID.ID})
		return
	}

	// If we're already WaitingForResult, replaying update_status
	// would produce no intermediate transitions (that row is all
	// no-ops for terminal statuses); skip straight to the explicit
	// Done transition below so exactly one callback fires.
	if m.commState != actionmsgs.WaitingForResult {
		synthetic := actionmsgs.GoalStatusArray{StatusList: []actionmsgs.GoalStatus{status}}
		m.updateStatusLocked(synthetic, handle)
		if m.commState == actionmsgs.Done {
			// updateStatusLocked can only reach Done here via the
			// "missing status" branch, which cannot trigger since we
			// just supplied a matching one; guard anyway in case the
			// table above is ever extended.
			return
		}
	}

	m.transitionToLocked(actionmsgs.Done, handle)
}

// UpdateFeedback delivers feedback to the registered FeedbackFunc, if
// any, without touching CommState.
func (m *CSM[G, F, R]) UpdateFeedback(actionFeedback actionmsgs.ActionFeedback[F], handle Handle) {
	status := m.spec.StatusOfFeedback(actionFeedback)
	if status.GoalID.ID != m.goalID.ID {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.callbacks.OnFeedback == nil {
		return
	}
	if handle != nil && !handle.Active() {
		return
	}
	m.callbacks.OnFeedback(handle, m.spec.FeedbackOf(actionFeedback), m.commState)
}

// TransitionTo sets CommState explicitly and fires the transition
// callback. It is exported for client.GoalHandle's Cancel and
// manager.Manager's CancelAllGoals, which move a CSM straight to
// WaitingForCancelAck outside the table.
func (m *CSM[G, F, R]) TransitionTo(state actionmsgs.CommState, handle Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionToLocked(state, handle)
}

func (m *CSM[G, F, R]) transitionToLocked(state actionmsgs.CommState, handle Handle) {
	m.logger.Debugf(m.goalID.ID, "transitioning to '%s'", state)
	m.commState = state

	if m.callbacks.OnTransition == nil {
		return
	}
	if handle != nil && !handle.Active() {
		return
	}

	var status actionmsgs.GoalStatus
	if m.latestStatus != nil {
		status = *m.latestStatus
	}

	var result *R
	if state == actionmsgs.Done && m.latestResult != nil {
		r := m.spec.ResultOf(*m.latestResult)
		result = &r
	}

	m.callbacks.OnTransition(handle, state, status, result)
}
