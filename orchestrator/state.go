package orchestrator

import (
	"errors"
	"fmt"
)

// CallState is the lifecycle state of one (unit, producer) call.
type CallState string

const (
	CallPending   CallState = "pending"
	CallRunning   CallState = "running"
	CallSucceeded CallState = "succeeded"
	CallFailed    CallState = "failed"
	CallTimedOut  CallState = "timed-out"
	CallSkipped   CallState = "skipped"
)

var ErrInvalidTransition = errors.New("invalid call state transition")

// IsTerminal reports whether the state is final.
func IsTerminal(s CallState) bool {
	switch s {
	case CallSucceeded, CallFailed, CallTimedOut, CallSkipped:
		return true
	default:
		return false
	}
}

// transition moves r from its current state to to, rejecting anything the
// lifecycle does not allow. Terminal states never change.
func transition(r *Result, to CallState) error {
	if !isAllowedTransition(r.State, to) {
		return fmt.Errorf("%w: %s/%s %s -> %s", ErrInvalidTransition, r.UnitID, r.Producer, r.State, to)
	}
	r.State = to
	return nil
}

func isAllowedTransition(from, to CallState) bool {
	switch from {
	case CallPending:
		return to == CallRunning || to == CallSkipped
	case CallRunning:
		return to == CallSucceeded || to == CallFailed || to == CallTimedOut
	default:
		return false
	}
}
