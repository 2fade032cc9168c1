package domain

import "errors"

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	generic bool
}

func (e *Error) Error() string { return e.Message }

// Is lets errors.Is match any error of a kind against the generic sentinel of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.generic && t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Generic sentinels, one per kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found", generic: true}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "forbidden", generic: true}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict", generic: true}
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input", generic: true}
)

var (
	ErrUserNotFound    = newError(KindNotFound, "user not found")
	ErrItemNotFound    = newError(KindNotFound, "item not found")
	ErrBookingNotFound = newError(KindNotFound, "booking not found")
	ErrRequestNotFound = newError(KindNotFound, "request not found")

	ErrAccessDenied = newError(KindForbidden, "access denied")

	ErrStatusDecided = newError(KindConflict, "status already decided")
	ErrEmailExists   = newError(KindConflict, "email already exists")

	ErrInvalidTimeRange  = newError(KindInvalidInput, "invalid time range")
	ErrInvalidPagination = newError(KindInvalidInput, "invalid pagination")
	ErrUnknownState      = newError(KindInvalidInput, "unknown state filter")
	ErrItemUnavailable   = newError(KindInvalidInput, "item unavailable")
	ErrSelfBooking       = newError(KindInvalidInput, "self-booking forbidden")
	ErrNotBooked         = newError(KindInvalidInput, "user has not booked this item")
	ErrEmptyComment      = newError(KindInvalidInput, "comment text is empty")
)

// Invalid builds an InvalidInput error with a field specific message.
func Invalid(msg string) *Error {
	return newError(KindInvalidInput, msg)
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
