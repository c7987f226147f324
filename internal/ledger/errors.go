package ledger

import (
	"errors"
	"fmt"

	"github.com/Quantumplation/daml-trace/internal/record"
)

// Error represents an access or concurrency failure raised by the
// store. Every failure is local to a single submission; the store
// guarantees all-or-nothing per Append/Consume, so callers never
// observe partial effects alongside one of these.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Handle identifies the affected record version, when known.
	Handle record.Handle

	// Caller identifies the party the submission was attributed to.
	Caller record.Party
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeAuthorization indicates the caller lacks rights for the
	// attempted operation. Fatal to that submission, never retried.
	CodeAuthorization ErrorCode = "AUTHORIZATION"

	// CodeNotVisible indicates the caller may not read the record.
	// Deliberately indistinguishable from "does not exist" so that
	// existence itself cannot leak to non-viewers.
	CodeNotVisible ErrorCode = "NOT_VISIBLE"

	// CodeStaleHandle indicates an optimistic-concurrency conflict:
	// the handle was consumed by a concurrent transition. This is the
	// only condition callers are expected to retry, after refetching
	// current state.
	CodeStaleHandle ErrorCode = "STALE_HANDLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Handle != "" && e.Caller != "" {
		return fmt.Sprintf("%s: %s (handle=%s, caller=%s)", e.Code, e.Message, e.Handle, e.Caller)
	}
	if e.Handle != "" {
		return fmt.Sprintf("%s: %s (handle=%s)", e.Code, e.Message, e.Handle)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsAuthorization returns true if the error is an authorization
// failure. Uses errors.As to handle wrapped errors.
func IsAuthorization(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == CodeAuthorization
	}
	return false
}

// IsNotVisible returns true if the error is a visibility failure.
// Uses errors.As to handle wrapped errors.
func IsNotVisible(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == CodeNotVisible
	}
	return false
}

// IsStale returns true if the error is an optimistic-concurrency
// conflict. Uses errors.As to handle wrapped errors.
func IsStale(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == CodeStaleHandle
	}
	return false
}

// NewAuthorizationError creates an Error for a rights failure.
func NewAuthorizationError(handle record.Handle, caller record.Party, msg string) *Error {
	return &Error{Code: CodeAuthorization, Message: msg, Handle: handle, Caller: caller}
}

// NewNotVisibleError creates an Error for a visibility failure.
func NewNotVisibleError(handle record.Handle, caller record.Party) *Error {
	return &Error{Code: CodeNotVisible, Message: "record is not visible", Handle: handle, Caller: caller}
}

// NewStaleHandleError creates an Error for a consumed or unknown handle.
func NewStaleHandleError(handle record.Handle) *Error {
	return &Error{Code: CodeStaleHandle, Message: "handle is no longer current", Handle: handle}
}
