// Package manager implements the Goal Manager: the per-action
// registry that owns every live CSM, wires incoming status/feedback/
// result traffic to the right one, and is the Owner client.GoalHandle
// calls back into for Resend, Cancel, and Forget.
//
// The registry shape (a sync.RWMutex field guarding a map keyed by
// id) follows the teacher's crew.Crew.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/audit"
	"github.com/ros2go/actionlib/client"
	"github.com/ros2go/actionlib/csm"
	"github.com/ros2go/actionlib/goalid"
	"github.com/ros2go/actionlib/observability/feed"
	"github.com/ros2go/actionlib/observability/logging"
	"github.com/ros2go/actionlib/spec"
	"github.com/ros2go/actionlib/transport"
)

// Topics names the five channels an action's traffic moves over,
// following the actionlib convention of a shared namespace with a
// fixed suffix per message kind.
type Topics struct {
	Goal     string
	Cancel   string
	Status   string
	Feedback string
	Result   string
}

// DefaultTopics derives the standard five topic names from an action
// namespace, e.g. "robot/turn" -> "robot/turn/goal", ".../cancel", etc.
func DefaultTopics(namespace string) Topics {
	return Topics{
		Goal:     namespace + "/goal",
		Cancel:   namespace + "/cancel",
		Status:   namespace + "/status",
		Feedback: namespace + "/feedback",
		Result:   namespace + "/result",
	}
}

type entry[G any, F any, R any] struct {
	sm      *csm.CSM[G, F, R]
	handle  *client.GoalHandle[G, F, R]
	audited bool
}

// Manager tracks every goal submitted for one action and dispatches
// inbound messages to the matching CSM.
type Manager[G any, F any, R any] struct {
	spec      *spec.ActionSpec[G, F, R]
	coupling  transport.Coupling
	topics    Topics
	goalIDs   *goalid.Generator
	logger    *logging.Logger
	auditSink audit.Sink

	mu       sync.RWMutex
	goals    map[string]*entry[G, F, R]
	liveFeed *feed.Feed
}

var _ client.Owner[struct{}] = (*Manager[struct{}, struct{}, struct{}])(nil)

// New builds a Manager for one action. sink may be audit.Discard{} if
// no audit trail is wanted; logger may be nil, in which case log
// calls are discarded.
func New[G any, F any, R any](
	sp *spec.ActionSpec[G, F, R],
	coupling transport.Coupling,
	topics Topics,
	node string,
	logger *logging.Logger,
	sink audit.Sink,
) *Manager[G, F, R] {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Manager[G, F, R]{
		spec:      sp,
		coupling:  coupling,
		topics:    topics,
		goalIDs:   goalid.New(node),
		logger:    logger,
		auditSink: sink,
		goals:     make(map[string]*entry[G, F, R]),
	}
}

// AttachFeed wires a live feed that every subsequent SubmitGoal's
// transitions are published to. Goals already in flight when this is
// called are unaffected; call it before submitting any goals if every
// transition should be visible.
func (m *Manager[G, F, R]) AttachFeed(f *feed.Feed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveFeed = f
}

// wrapForFeed returns a TransitionFunc that publishes to the attached
// feed, if any, before calling through to next.
func (m *Manager[G, F, R]) wrapForFeed(id actionmsgs.GoalID, next csm.TransitionFunc[R]) csm.TransitionFunc[R] {
	return func(h csm.Handle, state actionmsgs.CommState, status actionmsgs.GoalStatus, result *R) {
		m.mu.RLock()
		f := m.liveFeed
		m.mu.RUnlock()
		if f != nil {
			f.Publish(feed.Event{
				Time:      time.Now(),
				Action:    m.spec.Names.Action,
				GoalID:    id.ID,
				State:     state,
				Status:    status,
				HasResult: result != nil,
			})
		}
		if next != nil {
			next(h, state, status, result)
		}
	}
}

// Start connects the transport and subscribes to the three inbound
// topics. Call it once before SubmitGoal.
func (m *Manager[G, F, R]) Start(ctx context.Context) error {
	if err := m.coupling.Start(ctx); err != nil {
		return fmt.Errorf("actionlib manager: starting transport: %w", err)
	}
	if err := m.coupling.Subscribe(ctx, m.topics.Status, m.handleStatus); err != nil {
		return fmt.Errorf("actionlib manager: subscribing to status: %w", err)
	}
	if err := m.coupling.Subscribe(ctx, m.topics.Feedback, m.handleFeedback); err != nil {
		return fmt.Errorf("actionlib manager: subscribing to feedback: %w", err)
	}
	if err := m.coupling.Subscribe(ctx, m.topics.Result, m.handleResult); err != nil {
		return fmt.Errorf("actionlib manager: subscribing to result: %w", err)
	}
	return nil
}

// Stop unsubscribes and shuts down the transport. In-memory goal
// state is dropped; per the non-persistence invariant, nothing is
// written that would let a future process resume these goals.
func (m *Manager[G, F, R]) Stop(ctx context.Context) error {
	m.coupling.Unsubscribe(ctx, m.topics.Status)
	m.coupling.Unsubscribe(ctx, m.topics.Feedback)
	m.coupling.Unsubscribe(ctx, m.topics.Result)
	return m.coupling.Stop(ctx)
}

// SubmitGoal mints a GoalID, creates a CSM in WAITING_FOR_GOAL_ACK,
// registers it, and publishes the goal message.
func (m *Manager[G, F, R]) SubmitGoal(ctx context.Context, goal G, callbacks csm.Callbacks[F, R]) (*client.GoalHandle[G, F, R], error) {
	id := m.goalIDs.Generate()
	actionGoal := m.spec.NewActionGoal(goal, id.Stamp, id)

	var logger csm.Logger
	if m.logger != nil {
		logger = m.logger.With("goal_id", id.ID)
	}
	m.mu.RLock()
	feedAttached := m.liveFeed != nil
	m.mu.RUnlock()
	if feedAttached {
		callbacks.OnTransition = m.wrapForFeed(id, callbacks.OnTransition)
	}
	sm := csm.New(actionGoal, callbacks, m.spec, logger)
	handle := client.New[G, F, R](m, sm, logger)

	m.mu.Lock()
	m.goals[id.ID] = &entry[G, F, R]{sm: sm, handle: handle}
	m.mu.Unlock()

	if err := m.Publish(actionGoal); err != nil {
		m.Forget(id)
		return nil, err
	}
	return handle, nil
}

// CancelAllGoals asks the server to cancel every goal this client has
// submitted, by publishing a cancel message with an empty GoalID and
// a zero stamp, per the actionlib_msgs convention. Every locally
// tracked handle is moved to WAITING_FOR_CANCEL_ACK to match.
func (m *Manager[G, F, R]) CancelAllGoals() error {
	if err := m.PublishCancel(actionmsgs.GoalID{}, time.Time{}); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.goals {
		e.sm.TransitionTo(actionmsgs.WaitingForCancelAck, e.handle)
	}
	return nil
}

// Publish implements client.Owner.
func (m *Manager[G, F, R]) Publish(g actionmsgs.ActionGoal[G]) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("actionlib manager: marshaling goal: %w", err)
	}
	return m.coupling.Publish(context.Background(), m.topics.Goal, payload)
}

// PublishCancel implements client.Owner.
func (m *Manager[G, F, R]) PublishCancel(id actionmsgs.GoalID, stamp time.Time) error {
	msg := actionmsgs.GoalID{ID: id.ID, Stamp: stamp}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("actionlib manager: marshaling cancel: %w", err)
	}
	return m.coupling.Publish(context.Background(), m.topics.Cancel, payload)
}

// Forget implements client.Owner: drops a goal's CSM from the
// registry, freeing it for garbage collection.
func (m *Manager[G, F, R]) Forget(id actionmsgs.GoalID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.goals, id.ID)
}

// Handle returns the GoalHandle for id, if this manager still tracks
// it.
func (m *Manager[G, F, R]) Handle(id string) (*client.GoalHandle[G, F, R], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.goals[id]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

func (m *Manager[G, F, R]) handleStatus(payload []byte) {
	var gsa actionmsgs.GoalStatusArray
	if err := json.Unmarshal(payload, &gsa); err != nil {
		m.logf("dropping malformed status array: %v", err)
		return
	}

	m.mu.RLock()
	entries := make([]*entry[G, F, R], 0, len(m.goals))
	for _, e := range m.goals {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.sm.UpdateStatus(gsa, e.handle)
		m.maybeAudit(e)
	}
}

func (m *Manager[G, F, R]) handleFeedback(payload []byte) {
	var af actionmsgs.ActionFeedback[F]
	if err := json.Unmarshal(payload, &af); err != nil {
		m.logf("dropping malformed feedback: %v", err)
		return
	}
	status := m.spec.StatusOfFeedback(af)
	e, ok := m.lookup(status.GoalID.ID)
	if !ok {
		return
	}
	e.sm.UpdateFeedback(af, e.handle)
}

func (m *Manager[G, F, R]) handleResult(payload []byte) {
	var ar actionmsgs.ActionResult[R]
	if err := json.Unmarshal(payload, &ar); err != nil {
		m.logf("dropping malformed result: %v", err)
		return
	}
	status := m.spec.StatusOfResult(ar)
	e, ok := m.lookup(status.GoalID.ID)
	if !ok {
		return
	}

	e.sm.UpdateResult(ar, e.handle)
	m.maybeAudit(e)
}

// maybeAudit records e's outcome exactly once, the first time it is
// observed in DONE. It is called after every dispatch that can drive
// a CSM to DONE — both handleResult and, via the LOST-synthesis path
// in UpdateStatus, handleStatus — so a goal that goes LOST without
// ever receiving a result is still audited.
func (m *Manager[G, F, R]) maybeAudit(e *entry[G, F, R]) {
	if e.sm.CommState() != actionmsgs.Done {
		return
	}
	m.mu.Lock()
	already := e.audited
	e.audited = true
	m.mu.Unlock()
	if already {
		return
	}
	m.recordAudit(e)
}

func (m *Manager[G, F, R]) recordAudit(e *entry[G, F, R]) {
	ts := e.sm.TerminalState()
	goal := e.sm.ActionGoal()
	rec := audit.Record{
		GoalID:       e.sm.GoalID().ID,
		Action:       m.spec.Names.Action,
		SubmittedAt:  goal.Header.Stamp,
		FinishedAt:   time.Now(),
		TerminalCode: uint8(ts.State),
		TerminalText: ts.Text,
	}
	if err := m.auditSink.Record(rec); err != nil {
		m.logf("audit record for goal %s failed: %v", rec.GoalID, err)
	}
}

func (m *Manager[G, F, R]) lookup(id string) (*entry[G, F, R], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.goals[id]
	return e, ok
}

func (m *Manager[G, F, R]) logf(format string, args ...interface{}) {
	if m.logger == nil {
		return
	}
	m.logger.Infof(format, args...)
}
