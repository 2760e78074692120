package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateDisconnected

	next, err := Transition(s, EventConnect)
	require.NoError(t, err)
	require.Equal(t, StateConnecting, next)

	next, err = Transition(next, EventStarted)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)
	require.True(t, next.Recording())

	next, err = Transition(next, EventCompleted)
	require.NoError(t, err)
	require.Equal(t, StateStopped, next)
	require.False(t, next.Recording())

	next, err = Transition(next, EventClose)
	require.NoError(t, err)
	require.Equal(t, StateDisconnected, next)
}

func TestTransitionCloseFromAnyStateDisconnects(t *testing.T) {
	states := []State{StateDisconnected, StateConnecting, StateRecording, StateStopped, StateErrored}
	for _, state := range states {
		next, err := Transition(state, EventClose)
		require.NoError(t, err)
		require.Equal(t, StateDisconnected, next)
	}
}

func TestTransitionFailFromActiveStatesGoesErrored(t *testing.T) {
	states := []State{StateConnecting, StateRecording, StateStopped, StateErrored}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateErrored, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "disconnected started invalid", state: StateDisconnected, event: EventStarted, want: StateDisconnected, wantErr: true},
		{name: "disconnected fail invalid", state: StateDisconnected, event: EventFail, want: StateDisconnected, wantErr: true},
		{name: "disconnected stop noop", state: StateDisconnected, event: EventStop, want: StateDisconnected},
		{name: "connecting completed invalid", state: StateConnecting, event: EventCompleted, want: StateConnecting, wantErr: true},
		{name: "connecting stop", state: StateConnecting, event: EventStop, want: StateStopped},
		{name: "recording connect invalid", state: StateRecording, event: EventConnect, want: StateRecording, wantErr: true},
		{name: "recording started invalid", state: StateRecording, event: EventStarted, want: StateRecording, wantErr: true},
		{name: "recording stop", state: StateRecording, event: EventStop, want: StateStopped},
		{name: "stopped started invalid", state: StateStopped, event: EventStarted, want: StateStopped, wantErr: true},
		{name: "stopped stop noop", state: StateStopped, event: EventStop, want: StateStopped},
		{name: "errored started invalid", state: StateErrored, event: EventStarted, want: StateErrored, wantErr: true},
		{name: "errored connect invalid", state: StateErrored, event: EventConnect, want: StateErrored, wantErr: true},
		{name: "errored stop noop", state: StateErrored, event: EventStop, want: StateErrored},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventConnect)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
