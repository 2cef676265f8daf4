package domain

import "errors"

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidType    = errors.New("invalid_jurisdiction_type")
	ErrInvalidCountry = errors.New("invalid_country_code")
	ErrInvalidWindow  = errors.New("invalid_activity_window")
)
