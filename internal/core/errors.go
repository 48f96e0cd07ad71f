package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported to clients.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeValidation      = "validation_failed"
	ErrCodeStorage         = "storage_error"
	ErrCodeNotSubscribed   = "not_subscribed"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeUnknownInternal = "unknown"
)

var (
	// ErrHubClosed is returned by hub operations after shutdown.
	ErrHubClosed = errors.New("hub closed")
	// ErrConnectionClosed is returned when subscribing a connection that has been unregistered.
	ErrConnectionClosed = errors.New("connection closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports bad or missing input. Nothing was persisted or published.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// StorageError reports a failure of the persistence backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DeliveryError reports an event that could not be handed to a subscriber.
// It is only ever logged.
type DeliveryError struct {
	ConnID string
	Room   string
	Reason string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s in room %q: %s", e.ConnID, e.Room, e.Reason)
}

// ToCoreError maps an error returned by the core to a client-facing CoreError.
func ToCoreError(err error) *CoreError {
	var (
		ce *CoreError
		ve *ValidationError
		se *StorageError
	)
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.As(err, &ve):
		return coreError(ErrCodeValidation, ve.Error())
	case errors.As(err, &se):
		return coreError(ErrCodeStorage, "failed to save message")
	case errors.Is(err, ErrHubClosed):
		return coreError(ErrCodeUnavailable, "server is shutting down")
	default:
		return coreError(ErrCodeUnknownInternal, "internal error")
	}
}
