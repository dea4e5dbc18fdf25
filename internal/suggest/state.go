package suggest

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle of one suggestion: Idle, Pending, Resolved or Failed.
type State interface {
	isState()
}

// Idle means nothing has been requested, or the suggestion was dismissed.
type Idle struct{}

// Pending is an in-flight request.
type Pending struct {
	RequestID uuid.UUID
	Since     time.Time
}

// Resolved holds generated text.
type Resolved struct {
	Text string
}

// Failed holds the user-facing message of the last attempt.
type Failed struct {
	Message string
	Err     error
}

func (Idle) isState()     {}
func (Pending) isState()  {}
func (Resolved) isState() {}
func (Failed) isState()   {}

// StatusName is a short label for a state, used in rendered output.
func StatusName(s State) string {
	switch s.(type) {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}
