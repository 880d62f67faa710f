package domain

import (
	"errors"
	"fmt"
)

var (
	// requested entity is not found
	ErrMissing = errors.New("missing")

	// requested entity is found more than expected
	ErrTooMuch = errors.New("too much")

	// entity with the same identity exists already
	ErrConflict = errors.New("conflict")

	// status change is not allowed
	ErrInvalidTransition = errors.New("cannot change execution status")
)

func NewErrInvalidTransition(from, to ExecutionStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// StatusMismatch tells that a persisted status is not one of the statuses an update expects.
type StatusMismatch struct {
	Current  ExecutionStatus
	Expected []ExecutionStatus
}

func (e *StatusMismatch) Error() string {
	return fmt.Sprintf("%s: status is %s, expected one of %v", ErrInvalidTransition, e.Current, e.Expected)
}

func (e *StatusMismatch) Unwrap() error {
	return ErrInvalidTransition
}
