package daemon

import (
	"errors"
	"fmt"
)

// Client-side sentinel errors, matched with errors.Is.
var (
	// ErrNotConnected means Send was called before Connect, or after the
	// connection was torn down.
	ErrNotConnected = errors.New("daemon: not connected")

	// ErrConnectionFailed wraps a failed dial of the daemon socket.
	ErrConnectionFailed = errors.New("daemon: connection failed")

	// ErrRequestTimeout wraps a request whose I/O deadline expired.
	ErrRequestTimeout = errors.New("daemon: request timed out")
)

// ServerError is an envelope-level failure reported by the daemon,
// tagged with the operation that produced it. Operation-level statuses
// like not_found travel inside payloads instead.
type ServerError struct {
	Operation string
	Message   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// NewServerError creates a ServerError for the given operation.
func NewServerError(operation, message string) *ServerError {
	return &ServerError{Operation: operation, Message: message}
}
