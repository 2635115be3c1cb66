// Package client implements GoalHandle: the caller-facing handle
// returned when a goal is submitted, wrapping a csm.CSM with the
// operations a user actually calls (Resend, Cancel, query methods)
// and their idle-after-shutdown gating.
package client

import (
	"sync"
	"time"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/csm"
)

// Owner is the slice of a manager.Manager a GoalHandle needs. It is
// declared here, not in the manager package, so client never imports
// manager: manager owns and constructs GoalHandles, GoalHandles hold
// a non-owning reference back to whatever created them. Any type with
// this method set — in practice only *manager.Manager — satisfies it
// structurally.
type Owner[G any] interface {
	Publish(actionmsgs.ActionGoal[G]) error
	PublishCancel(actionmsgs.GoalID, time.Time) error
	Forget(actionmsgs.GoalID)
}

// GoalHandle is the caller's reference to one submitted goal. It
// stays valid for the lifetime of the goal; calling any method after
// Shutdown logs a *csm.Misuse and returns it as an error (or, for a
// query, a safe default: DONE, LOST, or no result) rather than
// panicking.
type GoalHandle[G any, F any, R any] struct {
	owner  Owner[G]
	sm     *csm.CSM[G, F, R]
	logger csm.Logger

	mu     sync.Mutex
	active bool
}

// New wraps sm as a handle owned by owner. Manager.SubmitGoal is the
// only intended caller. logger should be the same csm.Logger passed
// to csm.New for sm, so a shut-down handle's misuse logs land next to
// that goal's other log lines; a nil logger discards them.
func New[G any, F any, R any](owner Owner[G], sm *csm.CSM[G, F, R], logger csm.Logger) *GoalHandle[G, F, R] {
	if logger == nil {
		logger = csm.NopLogger{}
	}
	return &GoalHandle[G, F, R]{owner: owner, sm: sm, logger: logger, active: true}
}

// misuse builds and logs a *csm.Misuse for calling method on a
// shut-down handle, mirroring ClientGoalHandle's "log an error and
// return a safe value" behavior on an expired handle.
func (h *GoalHandle[G, F, R]) misuse(method string) *csm.Misuse {
	err := &csm.Misuse{GoalID: h.sm.GoalID().ID, Detail: method + " called on a shut-down handle"}
	h.logger.Errorf(err.GoalID, err)
	return err
}

// Active reports whether Shutdown has been called. It also satisfies
// csm.Handle, so the CSM can gate its own callbacks on the same flag.
func (h *GoalHandle[G, F, R]) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Shutdown marks the handle expired. If deleteFromManager is true,
// the owning manager forgets this goal's CSM as well, freeing it;
// pass false when the manager itself initiated the shutdown (e.g. on
// eviction) and is already removing its own entry.
func (h *GoalHandle[G, F, R]) Shutdown(deleteFromManager bool) {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()

	if deleteFromManager {
		h.owner.Forget(h.sm.GoalID())
	}
}

// CommState returns the goal's current CommState, or DONE if the
// handle has been shut down — mirroring the "log and return DONE"
// behavior of an expired ClientGoalHandle.
func (h *GoalHandle[G, F, R]) CommState() actionmsgs.CommState {
	if !h.Active() {
		h.misuse("CommState")
		return actionmsgs.Done
	}
	return h.sm.CommState()
}

// TerminalState returns the outcome of a finished goal. After
// Shutdown it logs misuse and returns LOST. Before the goal reaches
// DONE it still returns the mapping of the latest status (LOST if
// there is none or it is not terminal), and the CSM logs the early
// query.
func (h *GoalHandle[G, F, R]) TerminalState() actionmsgs.TerminalState {
	if !h.Active() {
		h.misuse("TerminalState")
		return actionmsgs.TerminalState{State: actionmsgs.TerminalLost}
	}
	return h.sm.TerminalState()
}

// Result returns the goal's result, if one has been recorded.
func (h *GoalHandle[G, F, R]) Result() (R, bool) {
	var zero R
	if !h.Active() {
		h.misuse("Result")
		return zero, false
	}
	return h.sm.Result()
}

// Resend republishes the original goal message. It is used to recover
// from a suspected LOST goal, or to nudge a server that has not yet
// acknowledged submission.
func (h *GoalHandle[G, F, R]) Resend() error {
	if !h.Active() {
		return h.misuse("Resend")
	}
	return h.owner.Publish(h.sm.ActionGoal())
}

// Cancel requests the server abandon this goal. It publishes a cancel
// message carrying this goal's id and moves the CSM directly to
// WAITING_FOR_CANCEL_ACK, matching the client-initiated transition in
// §4.4.2 that is not itself driven by an observed status.
func (h *GoalHandle[G, F, R]) Cancel() error {
	if !h.Active() {
		return h.misuse("Cancel")
	}
	if err := h.owner.PublishCancel(h.sm.GoalID(), time.Time{}); err != nil {
		return err
	}
	h.sm.TransitionTo(actionmsgs.WaitingForCancelAck, h)
	return nil
}
