package chatprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the chat protocol.
var (
	// ErrAuthenticationFailed indicates the service rejected the credential.
	ErrAuthenticationFailed = errors.New("login authentication failed")

	// ErrInvalidCommand indicates a value that cannot be sent as a command.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrMalformedCommand indicates a server line whose parameters do not
	// match the shape its command defines.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrTransportClosed indicates the transport was used after it was closed.
	ErrTransportClosed = errors.New("transport closed")

	// ErrAlreadyStarted indicates Start was called on a running observer.
	ErrAlreadyStarted = errors.New("observer already started")

	// ErrStopTimeout indicates the pumps did not exit within the stop timeout.
	ErrStopTimeout = errors.New("timed out waiting for pumps to stop")

	// ErrUnknownTransport indicates an unsupported transport name.
	ErrUnknownTransport = errors.New("unknown transport")
)

// AuthenticationError is returned when the service answers the handshake
// with the authentication failure notice.
type AuthenticationError struct {
	Nickname string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s for %q", ErrAuthenticationFailed.Error(), e.Nickname)
}

// Is reports whether target is ErrAuthenticationFailed.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// MalformedCommandError reports a server line whose parameters could not be
// matched. It is never fatal: the event is still dispatched with the fields
// that were resolved.
type MalformedCommandError struct {
	Command string // The command token, e.g. PRIVMSG
	Params  string // The parameter string that failed to match
}

// Error implements the error interface.
func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("failed to process %s message: %q", e.Command, e.Params)
}

// Is reports whether target is ErrMalformedCommand.
func (e *MalformedCommandError) Is(target error) bool {
	return target == ErrMalformedCommand
}

// InvalidCommandError reports a command rejected by Enqueue.
type InvalidCommandError struct {
	Field  string // verb, channel or body
	Value  string // The rejected value
	Reason string
}

// Error implements the error interface.
func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidCommand.
func (e *InvalidCommandError) Is(target error) bool {
	return target == ErrInvalidCommand
}

func newInvalidCommandError(field, value, reason string) error {
	return &InvalidCommandError{Field: field, Value: value, Reason: reason}
}

// ConnectionError represents a connection-related error.
type ConnectionError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("connection failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, cause error) error {
	return &ConnectionError{Message: message, Cause: cause}
}
