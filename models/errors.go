package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEventNotFound is returned when an update/delete references an id
	// absent from the store.
	ErrEventNotFound = errors.New("event not found")
	// ErrMalformedRecurrence is returned when a recurrence rule carries an
	// unrecognized type. During expansion the same condition degrades to
	// "no further occurrences" instead of failing.
	ErrMalformedRecurrence = errors.New("unrecognized recurrence type")
	// ErrOccurrenceDateRequired is returned when a single-occurrence
	// update/delete does not name the occurrence date.
	ErrOccurrenceDateRequired = errors.New("occurrence date is required for single-occurrence changes")
)

// ConflictError reports that a candidate event overlaps existing instances
// on the same date. The write was not applied; the conflicting set is
// carried so the caller can show it to the user. Callers must not retry
// automatically -- only the user can pick another time.
type ConflictError struct {
	Conflicts []EventInstance
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time conflict with %d existing event(s)", len(e.Conflicts))
}
