package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResetAlwaysOpens(t *testing.T) {
	for _, start := range []State{StateNone, StateOpen} {
		next, err := Transition(start, EventReset)
		require.NoError(t, err)
		require.Equal(t, StateOpen, next)
	}
}

func TestPushFromNoneImplicitlyOpens(t *testing.T) {
	next, err := Transition(StateNone, EventPush)
	require.NoError(t, err)
	require.Equal(t, StateOpen, next)
}

func TestPushFromOpenStaysOpen(t *testing.T) {
	next, err := Transition(StateOpen, EventPush)
	require.NoError(t, err)
	require.Equal(t, StateOpen, next)
}

func TestFlushDoesNotChangeState(t *testing.T) {
	for _, start := range []State{StateNone, StateOpen} {
		next, err := Transition(start, EventFlush)
		require.NoError(t, err)
		require.Equal(t, start, next)
	}
}

func TestCloseAlwaysReturnsToNone(t *testing.T) {
	for _, start := range []State{StateNone, StateOpen} {
		next, err := Transition(start, EventClose)
		require.NoError(t, err)
		require.Equal(t, StateNone, next)
	}
}

func TestUnknownEventIsRejected(t *testing.T) {
	_, err := Transition(StateOpen, Event("bogus"))
	require.Error(t, err)
}
