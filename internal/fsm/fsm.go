package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle     State = "idle"
	StateAdmitted State = "admitted"
	StateRunning  State = "running"
)

const (
	EventAdmit    Event = "admit"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
	EventFail     Event = "fail"
)

// Transition applies one lifecycle event to the current state. A denied
// admission never enters the machine: the failed trigger is terminal for
// itself and leaves the running session's state untouched.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventAdmit:
			return StateAdmitted, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAdmitted:
		switch event {
		case EventStart:
			return StateRunning, nil
		case EventCancel, EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRunning:
		switch event {
		case EventComplete, EventCancel, EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
