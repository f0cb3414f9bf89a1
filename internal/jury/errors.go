package jury

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmissionPending is returned when the same action is submitted again
	// while its first call is still in flight.
	ErrSubmissionPending = errors.New("submission already pending")

	// ErrNotEditing is returned when a name edit is committed without BeginEdit.
	ErrNotEditing = errors.New("campaign name is not being edited")
)

// ValidationError is detected locally and blocks the action before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteError wraps a failure returned by the Backend.
// Message is the human-readable text shown to the user.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ActivationError signals that the service refused an activation because the
// round's preconditions were not met.
type ActivationError struct {
	*RemoteError
}

func (e *ActivationError) Error() string {
	return "activation rejected: " + e.Message
}

func (e *ActivationError) Unwrap() error { return e.RemoteError }

// userMessager is implemented by collaborator errors that carry a message
// meant for the user, such as pkg/client.APIError.
type userMessager interface {
	UserMessage() string
}

func remoteError(op string, err error) *RemoteError {
	msg := err.Error()
	var um userMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		msg = um.UserMessage()
	}
	return &RemoteError{Op: op, Message: msg, Err: err}
}
