package domain

import "errors"

var (
	ErrInvalidRule      = errors.New("invalid_payroll_rule")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrInvalidWindow    = errors.New("invalid_activity_window")
	ErrNegativeGrossPay = errors.New("negative_gross_pay")
	ErrMissingPayDate   = errors.New("missing_pay_date")
)
