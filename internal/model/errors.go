package model

import (
	"errors"
	"fmt"
)

// ErrNotYetDue is returned when a goal is completed before its date.
var ErrNotYetDue = errors.New("goal is not yet due")

// ErrCouldNotSave is returned when a local write fails during a user action.
// It is the only non-validation failure surfaced to users.
var ErrCouldNotSave = errors.New("could not save")

// ValidationError reports invalid user input. No mutation is performed when
// one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
