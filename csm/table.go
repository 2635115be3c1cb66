package csm

import "github.com/ros2go/actionlib/actionmsgs"

// nextStates is the transition table of §4.4.1, transcribed
// case-by-case rather than folded into a generic data structure: the
// table has no regularity worth factoring out, and a literal
// transcription is the easiest one to check against the
// specification cell by cell.
//
// states is the ordered sequence of CommStates transitionTo should
// enter; a nil, nil-error return means "no transition" (the "—"
// cells). A non-nil error means the cell is "illegal": states is
// always nil in that case and the caller must not transition.
func nextStates(from actionmsgs.CommState, status actionmsgs.GoalStatusEnum, goalID string) ([]actionmsgs.CommState, error) {
	switch from {

	case actionmsgs.WaitingForGoalAck:
		switch status {
		case actionmsgs.StatusPending:
			return []actionmsgs.CommState{actionmsgs.Pending}, nil
		case actionmsgs.StatusActive:
			return []actionmsgs.CommState{actionmsgs.Active}, nil
		case actionmsgs.StatusPreempted:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusSucceeded:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusAborted:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusRejected:
			return []actionmsgs.CommState{actionmsgs.Pending, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusPreempting:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.Preempting}, nil
		case actionmsgs.StatusRecalling:
			return []actionmsgs.CommState{actionmsgs.Pending, actionmsgs.Recalling}, nil
		case actionmsgs.StatusRecalled:
			return []actionmsgs.CommState{actionmsgs.Pending, actionmsgs.WaitingForResult}, nil
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.Pending:
		switch status {
		case actionmsgs.StatusPending:
			return nil, nil
		case actionmsgs.StatusActive:
			return []actionmsgs.CommState{actionmsgs.Active}, nil
		case actionmsgs.StatusPreempted:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusSucceeded:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusAborted:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusRejected:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusPreempting:
			return []actionmsgs.CommState{actionmsgs.Active, actionmsgs.Preempting}, nil
		case actionmsgs.StatusRecalling:
			return []actionmsgs.CommState{actionmsgs.Recalling}, nil
		case actionmsgs.StatusRecalled:
			return []actionmsgs.CommState{actionmsgs.Recalling, actionmsgs.WaitingForResult}, nil
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.Active:
		switch status {
		case actionmsgs.StatusPending:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusActive:
			return nil, nil
		case actionmsgs.StatusPreempted:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusSucceeded:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusAborted:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusRejected:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusPreempting:
			return []actionmsgs.CommState{actionmsgs.Preempting}, nil
		case actionmsgs.StatusRecalling:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusRecalled:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.WaitingForResult:
		switch status {
		case actionmsgs.StatusPending:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusActive:
			return nil, nil
		case actionmsgs.StatusPreempted:
			return nil, nil
		case actionmsgs.StatusSucceeded:
			return nil, nil
		case actionmsgs.StatusAborted:
			return nil, nil
		case actionmsgs.StatusRejected:
			return nil, nil
		case actionmsgs.StatusPreempting:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusRecalling:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusRecalled:
			return nil, nil
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.WaitingForCancelAck:
		switch status {
		case actionmsgs.StatusPending:
			return nil, nil
		case actionmsgs.StatusActive:
			return nil, nil
		case actionmsgs.StatusPreempted:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusSucceeded:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusAborted:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusRejected:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusPreempting:
			return []actionmsgs.CommState{actionmsgs.Preempting}, nil
		case actionmsgs.StatusRecalling:
			return []actionmsgs.CommState{actionmsgs.Recalling}, nil
		case actionmsgs.StatusRecalled:
			return []actionmsgs.CommState{actionmsgs.Recalling, actionmsgs.WaitingForResult}, nil
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.Recalling:
		switch status {
		case actionmsgs.StatusPending:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusActive:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusPreempted:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusSucceeded:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusAborted:
			return []actionmsgs.CommState{actionmsgs.Preempting, actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusRejected:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusPreempting:
			return []actionmsgs.CommState{actionmsgs.Preempting}, nil
		case actionmsgs.StatusRecalling:
			return nil, nil
		case actionmsgs.StatusRecalled:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.Preempting:
		switch status {
		case actionmsgs.StatusPending:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusActive:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusPreempted:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusSucceeded:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusAborted:
			return []actionmsgs.CommState{actionmsgs.WaitingForResult}, nil
		case actionmsgs.StatusRejected:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusPreempting:
			return nil, nil
		case actionmsgs.StatusRecalling:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusRecalled:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	case actionmsgs.Done:
		// Unreachable in practice: UpdateStatus returns before
		// consulting this table when commState is already Done (see
		// invariant 2). Kept complete so the table remains a total,
		// checkable function of (from, status).
		switch status {
		case actionmsgs.StatusPending:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusActive:
			return nil, nil
		case actionmsgs.StatusPreempting:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusRecalling:
			return nil, &ProtocolViolation{GoalID: goalID, From: from, Status: status}
		case actionmsgs.StatusPreempted, actionmsgs.StatusSucceeded, actionmsgs.StatusAborted,
			actionmsgs.StatusRecalled, actionmsgs.StatusRejected:
			return nil, nil
		default:
			return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
		}

	default:
		return nil, &UnknownStatusCode{GoalID: goalID, From: from, Status: status}
	}
}
