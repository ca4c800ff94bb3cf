package chat

import (
	"context"

	"github.com/genzchat/genzchat/internal/stream"
)

// TurnState tags where the controller is in the request/response cycle.
// Only TurnInFlight blocks a new submission.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnInFlight
	TurnCompleted
	TurnFailed
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnInFlight:
		return "in-flight"
	case TurnCompleted:
		return "completed"
	case TurnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Turn is one user message and the assistant reply streamed for it.
// It references its assistant message by index within the session it was
// started in; once that session is replaced the turn no longer writes.
type Turn struct {
	sessionID string
	index     int
	cancel    context.CancelFunc
	done      chan struct{}

	// guarded by Controller.mu until done is closed
	state  TurnState
	err    error
	result stream.Result
}

// Done is closed once the turn released the controller.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// SessionID returns the session the turn belongs to.
func (t *Turn) SessionID() string {
	return t.sessionID
}

// Err returns why the turn failed. Only valid after Done is closed.
func (t *Turn) Err() error {
	<-t.done
	return t.err
}

// Result returns the reconciled stream outcome. Only valid after Done is closed.
func (t *Turn) Result() stream.Result {
	<-t.done
	return t.result
}

// Outcome returns TurnCompleted or TurnFailed once the turn is over.
func (t *Turn) Outcome() TurnState {
	<-t.done
	return t.state
}
