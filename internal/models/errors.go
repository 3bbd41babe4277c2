package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means there is not enough history to compute a result.
	// Nothing is persisted when it is returned.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidTransition is returned for a decision status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid decision status transition")

	// ErrNotYetEvaluable means the decision is not implemented or has not matured yet.
	ErrNotYetEvaluable = errors.New("decision not yet evaluable")

	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a write-once record is written twice.
	ErrAlreadyExists = errors.New("record already exists")
)

// ComputationError wraps an unexpected failure of the underlying store.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failure during %s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// NewComputationError returns nil when err is nil.
func NewComputationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ComputationError
	if errors.As(err, &ce) {
		return err
	}
	return &ComputationError{Op: op, Err: err}
}
