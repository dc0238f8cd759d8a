package cache

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid mutation state transition")

// State is the lifecycle of one pending mutation:
//
//	Idle -> Optimistic -> Confirmed -> Idle
//	                   -> Failed -> RolledBack -> Idle
type State int

const (
	StateIdle State = iota
	StateOptimistic
	StateConfirmed
	StateFailed
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:       {StateOptimistic},
	StateOptimistic: {StateConfirmed, StateFailed},
	StateConfirmed:  {StateIdle},
	StateFailed:     {StateRolledBack},
	StateRolledBack: {StateIdle},
}

func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is reported to the observer on every state change.
type Transition struct {
	MutationID string
	Kind       Kind
	ListingID  string
	From       State
	To         State
	Err        error
}
