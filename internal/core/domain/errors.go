package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindValidation        ErrorKind = "VALIDATION"
	KindConflict          ErrorKind = "CONFLICT"
	KindDependency        ErrorKind = "DEPENDENCY"
)

const (
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeSlotConflict           = "SLOT_CONFLICT"
)

// Error is the machine-readable error surfaced by the workflow core.
// Kind classifies it; Code narrows a kind (e.g. the two CONFLICT causes).
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, and on code when the target sets one, so
// errors.Is(err, ErrConflict) holds for every conflict while
// errors.Is(err, ErrSlotConflict) only holds for scheduling collisions.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrValidation             = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict               = &Error{Kind: KindConflict, Message: "conflict"}
	ErrConcurrentModification = &Error{Kind: KindConflict, Code: CodeConcurrentModification, Message: "concurrent modification"}
	ErrSlotConflict           = &Error{Kind: KindConflict, Code: CodeSlotConflict, Message: "slot conflict"}
	ErrDependency             = &Error{Kind: KindDependency, Message: "dependency unavailable"}
)

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidTransitionError(from Status, t Transition) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("transition %q is not permitted from status %s", t, from),
	}
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewConcurrentModificationError(processID string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeConcurrentModification,
		Message: fmt.Sprintf("process %s was modified concurrently, reload and retry", processID),
	}
}

func NewSlotConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: CodeSlotConflict, Message: fmt.Sprintf(format, args...)}
}

func NewDependencyError(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err is not a workflow error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
