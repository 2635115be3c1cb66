// Package spec implements the Action Specification: an injected
// schema of message-type names and accessor closures that lets the
// rest of the module (csm, client, manager) stay agnostic to the
// concrete shape of a goal, its feedback, and its result.
//
// This mirrors the teacher's core.Spec, which holds a machine's
// behavior as a bundle of closures (Action, ActionSource, ...)
// rather than propagating a message type through every component.
package spec

import (
	"strings"
	"time"

	"github.com/ros2go/actionlib/actionmsgs"
)

// Funcs is the set of accessor and constructor closures an
// ActionSpec needs. All nine fields are required; New reports a
// *SpecError naming whichever are missing.
type Funcs[G any, F any, R any] struct {
	GoalOf     func(actionmsgs.ActionGoal[G]) G
	ResultOf   func(actionmsgs.ActionResult[R]) R
	FeedbackOf func(actionmsgs.ActionFeedback[F]) F

	GoalIDOf         func(actionmsgs.ActionGoal[G]) actionmsgs.GoalID
	StatusOfFeedback func(actionmsgs.ActionFeedback[F]) actionmsgs.GoalStatus
	StatusOfResult   func(actionmsgs.ActionResult[R]) actionmsgs.GoalStatus

	NewActionGoal     func(goal G, stamp time.Time, id actionmsgs.GoalID) actionmsgs.ActionGoal[G]
	NewActionFeedback func(feedback F, stamp time.Time, status actionmsgs.GoalStatus) actionmsgs.ActionFeedback[F]
	NewActionResult   func(result R, stamp time.Time, status actionmsgs.GoalStatus) actionmsgs.ActionResult[R]
}

// Names is the set of the seven wire type identifiers an ActionSpec
// bundles. They are carried for labeling (the manager puts Action on
// live-feed events and audit records); topic names come from the
// action namespace instead, and nothing in this package parses them.
type Names struct {
	Action         string
	ActionFeedback string
	ActionGoal     string
	ActionResult   string
	Feedback       string
	Goal           string
	Result         string
}

// ActionSpec bundles the message-type names and accessor functions
// needed to pack goals and unpack feedback/result/status from their
// envelope messages.
type ActionSpec[G any, F any, R any] struct {
	Names Names
	Funcs[G, F, R]
}

// New constructs an ActionSpec, validating that every required
// accessor is present and every message-type name is non-empty. A
// missing field is a construction-time error, not a nil closure
// waiting to panic later.
func New[G any, F any, R any](names Names, funcs Funcs[G, F, R]) (*ActionSpec[G, F, R], error) {
	var missing []string

	for name, present := range map[string]bool{
		"Action":         names.Action != "",
		"ActionFeedback": names.ActionFeedback != "",
		"ActionGoal":     names.ActionGoal != "",
		"ActionResult":   names.ActionResult != "",
		"Feedback":       names.Feedback != "",
		"Goal":           names.Goal != "",
		"Result":         names.Result != "",
	} {
		if !present {
			missing = append(missing, name)
		}
	}

	for name, present := range map[string]bool{
		"GoalOf":            funcs.GoalOf != nil,
		"ResultOf":          funcs.ResultOf != nil,
		"FeedbackOf":        funcs.FeedbackOf != nil,
		"GoalIDOf":          funcs.GoalIDOf != nil,
		"StatusOfFeedback":  funcs.StatusOfFeedback != nil,
		"StatusOfResult":    funcs.StatusOfResult != nil,
		"NewActionGoal":     funcs.NewActionGoal != nil,
		"NewActionFeedback": funcs.NewActionFeedback != nil,
		"NewActionResult":   funcs.NewActionResult != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, &SpecError{Action: names.Action, Missing: missing}
	}

	return &ActionSpec[G, F, R]{Names: names, Funcs: funcs}, nil
}

// IsValid reports whether s was fully constructed. A *ActionSpec
// returned by New is always valid; this exists so callers that
// received an ActionSpec from elsewhere (e.g. across a plugin
// boundary) can still guard against a zero-value spec.
func (s *ActionSpec[G, F, R]) IsValid() bool {
	return s != nil && s.Names.Action != "" && s.GoalOf != nil
}

// SpecError reports that an ActionSpec could not be constructed
// because one or more required message-type names or accessor
// functions were missing.
type SpecError struct {
	Action  string
	Missing []string
}

func (e *SpecError) Error() string {
	name := e.Action
	if name == "" {
		name = "<unnamed action>"
	}
	return "actionlib: spec \"" + name + "\" is missing: " + strings.Join(e.Missing, ", ")
}
