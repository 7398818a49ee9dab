package store

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for ids that do not exist (or are hidden by
// soft delete in default-scope queries).
var ErrNotFound = errors.New("resume not found")

// ValidationError reports rejected input before it reaches the database.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
