package dispatcher

import (
	"errors"
	"fmt"
)

// PermanentError marks a task failure that retrying cannot fix, e.g. a
// condition referencing a field that does not exist. The executor fails the
// task immediately without consuming its remaining attempts.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent task failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks the error as non-retriable.
func (e *PermanentError) Permanent() bool { return true }

// NewPermanentError wraps err as non-retriable.
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, anywhere in its chain, declares itself
// non-retriable via a Permanent() method.
func IsPermanent(err error) bool {
	var permanent interface{ Permanent() bool }

	return errors.As(err, &permanent) && permanent.Permanent()
}
