package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeEmptyMessage = "empty_message"
	ErrCodeNotConnected = "not_connected"
	ErrCodeSendFailed   = "send_failed"
	ErrCodeBadRequest   = "bad_request"
)

var (
	// ErrEmptyMessage rejects whitespace-only outgoing messages before any
	// store round trip.
	ErrEmptyMessage = errors.New("empty message")
	// ErrNotConnected is returned when no room is bound yet.
	ErrNotConnected = errors.New("not connected to a room")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}
