package domain

import "errors"

var (
	ErrInvalidMethod     = errors.New("invalid_calculation_method")
	ErrInvalidPercentage = errors.New("invalid_percentage")
	ErrMissingFlatAmount = errors.New("missing_flat_amount")
	ErrInvalidWindow     = errors.New("invalid_activity_window")

	// ErrCompoundCycle is returned when compound_on references form a
	// cycle. The engine fails fast instead of relying on list order.
	ErrCompoundCycle = errors.New("compound_cycle")
)
