package domain

import "errors"

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrUnknownOperator    = errors.New("unknown_operator")
	ErrUnknownAction      = errors.New("unknown_action")
	ErrMissingActions     = errors.New("missing_actions")
	ErrMissingActionParam = errors.New("missing_action_param")
	ErrInvalidWindow      = errors.New("invalid_activity_window")
)
