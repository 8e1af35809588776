package validation

import "errors"

var (
	ErrInvalidBody          = errors.New("invalid request body")
	ErrEmptyApplicationName = errors.New("applicationName is required")
)
