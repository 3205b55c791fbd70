package record

import (
	"errors"
	"fmt"
)

// Sentinel errors the record store client maps HTTP failures onto.
var (
	ErrNotFound    = errors.New("record not found")
	ErrAuthExpired = errors.New("session expired")
)

// ConflictError means the record was changed by someone else since the
// caller last loaded it. CurrentVersion is the version now on the server.
type ConflictError struct {
	CurrentVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: server is at version %d", e.CurrentVersion)
}

// ValidationError carries the field errors the server rejected a write
// with.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field error(s)", len(e.Errors))
}

// TransportError wraps a network or server failure that says nothing about
// the record itself. Retrying with the same input is safe.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("record store unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
