package stream

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every rejected state change, so callers
// can branch on it regardless of which states were involved.
var ErrInvalidTransition = errors.New("invalid session state transition")

// State is the lifecycle position of a streaming session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateInRoomIdle
	StateRecording
	StateAwaitingResult
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateInRoomIdle:
		return "in_room_idle"
	case StateRecording:
		return "recording"
	case StateAwaitingResult:
		return "awaiting_result"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Event triggers a state transition.
type Event int

const (
	EventConnectRequested Event = iota
	EventTransportConnected
	EventRoomJoined
	EventStartRequested
	EventStopRequested
	EventProcessingComplete
	EventTransportError
	EventDisconnected
)

func (e Event) String() string {
	switch e {
	case EventConnectRequested:
		return "connect_requested"
	case EventTransportConnected:
		return "transport_connected"
	case EventRoomJoined:
		return "room_joined"
	case EventStartRequested:
		return "start_requested"
	case EventStopRequested:
		return "stop_requested"
	case EventProcessingComplete:
		return "processing_complete"
	case EventTransportError:
		return "transport_error"
	case EventDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// Transition is the single transition function of the session state machine.
// Disconnect and transport errors are accepted from any state; everything
// else is valid only from the state the protocol prescribes.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventDisconnected:
		return StateDisconnected, nil
	case EventTransportError:
		return StateErrored, nil
	case EventConnectRequested:
		if current == StateDisconnected {
			return StateConnecting, nil
		}
	case EventTransportConnected:
		if current == StateConnecting {
			return StateConnected, nil
		}
	case EventRoomJoined:
		switch current {
		case StateConnected:
			return StateInRoomIdle, nil
		case StateInRoomIdle, StateRecording, StateAwaitingResult:
			// Repeated confirmations for the same connection are absorbed.
			return current, nil
		}
	case EventStartRequested:
		if current == StateInRoomIdle {
			return StateRecording, nil
		}
	case EventStopRequested:
		if current == StateRecording {
			return StateAwaitingResult, nil
		}
	case EventProcessingComplete:
		if current == StateAwaitingResult {
			return StateInRoomIdle, nil
		}
	}
	return current, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, current)
}
