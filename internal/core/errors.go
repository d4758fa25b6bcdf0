package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger unwraps to one of these.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrActorNotFound       = errors.New("actor not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPolicyViolation     = errors.New("policy violation")
	ErrColumnNotFound      = errors.New("column not found")
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrAlreadyCheckedIn    = errors.New("already checked in")
	ErrNoActiveEvent       = errors.New("no active event")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// Error pairs an error kind with the message shown to callers.
type Error struct {
	Kind    error
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func InvalidRequest(format string, args ...any) *Error {
	return newError(ErrInvalidRequest, nil, format, args...)
}

// ActorNotFound uses the policy's role label, e.g. "RA 'Sara' not found."
func ActorNotFound(role, name string) *Error {
	return newError(ErrActorNotFound, nil, "%s '%s' not found.", role, name)
}

// InsufficientBalanceError carries the balance the actor actually has.
type InsufficientBalanceError struct {
	Actor     string
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient balance. You have %d points.", e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

func PolicyViolation(format string, args ...any) *Error {
	return newError(ErrPolicyViolation, nil, format, args...)
}

func ColumnNotFound(label, table string) *Error {
	return newError(ErrColumnNotFound, nil, "Could not find '%s' column for today in %s.", label, table)
}

func SubjectNotFound(key, table string) *Error {
	return newError(ErrSubjectNotFound, nil, "Student '%s' not found in %s.", key, table)
}

// EventColumnNotFound is the check-in flavour of ColumnNotFound.
func EventColumnNotFound(event string) *Error {
	return newError(ErrColumnNotFound, nil, "Could not find column for Event: '%s' on today's date.", event)
}

func SubjectIDNotFound(id string) *Error {
	return newError(ErrSubjectNotFound, nil, "Student ID %s not found in the sheet.", id)
}

func AlreadyCheckedIn(subject, event string) *Error {
	return newError(ErrAlreadyCheckedIn, nil, "%s has already been checked in for %s!", subject, event)
}

func NoActiveEvent() *Error {
	return newError(ErrNoActiveEvent, nil, "Error: No active event!.")
}

// StoreUnavailable wraps a transport or auth failure from the backing store.
func StoreUnavailable(op string, cause error) *Error {
	return newError(ErrStoreUnavailable, cause, "%s", op)
}

// Message returns the caller-facing text for err.
func Message(err error) string {
	var le *Error
	if errors.As(err, &le) {
		if errors.Is(le.Kind, ErrStoreUnavailable) && le.Err != nil {
			return fmt.Sprintf("An error occurred: %v", le.Err)
		}
		return le.Message
	}
	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		return ib.Error()
	}
	if err == nil {
		return ""
	}
	return fmt.Sprintf("An error occurred: %v", err)
}

// Kind returns the error kind of err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidRequest, ErrActorNotFound, ErrInsufficientBalance, ErrPolicyViolation,
		ErrColumnNotFound, ErrSubjectNotFound, ErrAlreadyCheckedIn, ErrNoActiveEvent,
		ErrStoreUnavailable,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName is the stable identifier stored in the journal.
func KindName(err error) string {
	switch Kind(err) {
	case ErrInvalidRequest:
		return "invalid_request"
	case ErrActorNotFound:
		return "actor_not_found"
	case ErrInsufficientBalance:
		return "insufficient_balance"
	case ErrPolicyViolation:
		return "policy_violation"
	case ErrColumnNotFound:
		return "column_not_found"
	case ErrSubjectNotFound:
		return "subject_not_found"
	case ErrAlreadyCheckedIn:
		return "already_checked_in"
	case ErrNoActiveEvent:
		return "no_active_event"
	case ErrStoreUnavailable:
		return "store_unavailable"
	}
	if err != nil {
		return "internal"
	}
	return ""
}
