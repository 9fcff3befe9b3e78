package store

import (
	"fmt"
	"strconv"
)

// InvalidInputError is returned when the payload is not well-formed event JSON.
// The load is aborted and nothing is replaced.
type InvalidInputError struct {
	Err error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// EmptyDatasetError is returned when no timestamp in the payload could be parsed
type EmptyDatasetError struct {
	Skipped int // number of records quarantined as malformed
}

func (e *EmptyDatasetError) Error() string {
	if e.Skipped == 0 {
		return "dataset contains no events"
	}
	return "dataset contains no valid timestamps (" + strconv.Itoa(e.Skipped) + " malformed records skipped)"
}

// MalformedRecordWarning describes a single record skipped during load.
// EventName is empty when the whole entity value was unusable.
type MalformedRecordWarning struct {
	EntityID  string
	EventName string
	Reason    string
	Raw       string
}

func (w MalformedRecordWarning) String() string {
	if w.EventName == "" {
		return fmt.Sprintf("%s: %s", w.EntityID, w.Reason)
	}
	return fmt.Sprintf("%s / %s: %s", w.EntityID, w.EventName, w.Reason)
}
