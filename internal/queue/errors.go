package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition reports a status change that the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotFound reports an unknown item id.
	ErrNotFound = errors.New("queue item not found")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	ID     int64
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("item %d: %s -> %s", e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
