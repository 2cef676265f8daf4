package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoLines          = errors.New("no_line_items")
	ErrNegativeAmount   = errors.New("negative_amount")
	ErrNegativeQuantity = errors.New("negative_quantity")
	ErrNegativeShipping = errors.New("negative_shipping")
	ErrNegativeDiscount = errors.New("negative_discount")
)

// ComputationError marks an internal invariant violation (compounding
// cycle, malformed stored rule). It is logged and surfaced typed, never
// swallowed, and distinct from request validation failures.
type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation_error: %v", e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// NewComputationError wraps err as a ComputationError.
func NewComputationError(err error) error {
	if err == nil {
		return nil
	}
	return &ComputationError{Err: err}
}

// IsComputationError reports whether err is (or wraps) a ComputationError.
func IsComputationError(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}
