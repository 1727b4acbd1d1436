package money

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrInvalidAmount is returned when a decimal string is not an exact
	// amount of cents or a ratio cannot be computed.
	ErrInvalidAmount = errors.New("invalid amount")
)
