// Package fsm defines the recognition session lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateRecording    State = "recording"
	StateStopped      State = "stopped"
	StateErrored      State = "errored"
)

const (
	EventConnect   Event = "connect"
	EventStarted   Event = "started"
	EventStop      Event = "stop"
	EventCompleted Event = "completed"
	EventFail      Event = "fail"
	EventClose     Event = "close"
)

// Transition returns the state reached from current on event. Invalid
// transitions leave the state unchanged and return an error.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateDisconnected, StateConnecting, StateRecording, StateStopped, StateErrored:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}

	if event == EventClose {
		return StateDisconnected, nil
	}

	switch current {
	case StateDisconnected:
		switch event {
		case EventConnect:
			return StateConnecting, nil
		case EventStop:
			return current, nil
		}
	case StateConnecting:
		switch event {
		case EventStarted:
			return StateRecording, nil
		case EventFail:
			return StateErrored, nil
		case EventStop:
			return StateStopped, nil
		}
	case StateRecording:
		switch event {
		case EventStop, EventCompleted:
			return StateStopped, nil
		case EventFail:
			return StateErrored, nil
		}
	case StateStopped:
		switch event {
		case EventStop, EventCompleted:
			return current, nil
		case EventFail:
			return StateErrored, nil
		}
	case StateErrored:
		switch event {
		case EventFail, EventStop:
			return current, nil
		}
	}
	return current, invalidTransition(current, event)
}

// Recording reports whether audio may be sent in state s.
func (s State) Recording() bool {
	return s == StateRecording
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
