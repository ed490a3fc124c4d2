package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a lifecycle edge is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the recorder lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateRecorded
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateRecorded:
		return "recorded"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// edges lists every legal transition.
//
//	Idle → Recording → Recorded → Processing → Idle
//
// plus Recording → Idle when a capture cannot be finalized and
// Recorded → Idle when the user discards a recording.
var edges = map[State][]State{
	StateIdle:       {StateRecording},
	StateRecording:  {StateRecorded, StateIdle},
	StateRecorded:   {StateProcessing, StateIdle},
	StateProcessing: {StateIdle},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}

	return false
}

// Machine holds the current state and only moves along legal edges.
// It is not safe for concurrent use; Controller serializes access.
type Machine struct {
	state State
}

// Current returns the current state.
func (m *Machine) Current() State {
	return m.state
}

// Transition moves to the given state or returns ErrInvalidTransition.
func (m *Machine) Transition(to State) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, m.state, to)
	}

	m.state = to

	return nil
}
