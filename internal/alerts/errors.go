package alerts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced alert does not exist.
	ErrNotFound = errors.New("alert not found")

	// ErrForbidden is the base of every authorization failure. The
	// specific reasons below wrap it so callers can branch with
	// errors.Is(err, ErrForbidden) or match the exact case.
	ErrForbidden = errors.New("forbidden")

	ErrNotOwner             = fmt.Errorf("%w: not the alert creator", ErrForbidden)
	ErrNotRecipient         = fmt.Errorf("%w: not a current recipient", ErrForbidden)
	ErrSuperuserUnsubscribe = fmt.Errorf("%w: superusers must edit the alert instead of unsubscribing", ErrForbidden)
	ErrCardAccess           = fmt.Errorf("%w: no read access to the card", ErrForbidden)
)

// ValidationError reports a malformed create or update payload. It is
// raised before any persistence or notification side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
