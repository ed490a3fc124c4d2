package session_test

import (
	"testing"

	"github.com/alkime/voxrelay/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_LinearLifecycle(t *testing.T) {
	t.Parallel()

	var m session.Machine
	assert.Equal(t, session.StateIdle, m.Current())

	for _, next := range []session.State{
		session.StateRecording,
		session.StateRecorded,
		session.StateProcessing,
		session.StateIdle,
	} {
		require.NoError(t, m.Transition(next))
		assert.Equal(t, next, m.Current())
	}
}

func TestMachine_RejectsInvalidTransitions(t *testing.T) {
	t.Parallel()

	all := []session.State{
		session.StateIdle,
		session.StateRecording,
		session.StateRecorded,
		session.StateProcessing,
	}

	allowed := map[[2]session.State]bool{
		{session.StateIdle, session.StateRecording}:      true,
		{session.StateRecording, session.StateRecorded}:  true,
		{session.StateRecording, session.StateIdle}:      true,
		{session.StateRecorded, session.StateProcessing}: true,
		{session.StateRecorded, session.StateIdle}:       true,
		{session.StateProcessing, session.StateIdle}:     true,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(from.String()+"→"+to.String(), func(t *testing.T) {
				t.Parallel()

				assert.Equal(t, allowed[[2]session.State{from, to}], session.CanTransition(from, to))
			})
		}
	}
}

func TestMachine_TransitionError(t *testing.T) {
	t.Parallel()

	var m session.Machine

	err := m.Transition(session.StateProcessing)

	require.ErrorIs(t, err, session.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "idle → processing")
	assert.Equal(t, session.StateIdle, m.Current())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", session.StateIdle.String())
	assert.Equal(t, "recording", session.StateRecording.String())
	assert.Equal(t, "recorded", session.StateRecorded.String())
	assert.Equal(t, "processing", session.StateProcessing.String())
	assert.Equal(t, "state(9)", session.State(9).String())
}
