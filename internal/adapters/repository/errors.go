package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyExists   = errors.New("record already exists")
	ErrConditionFailed = errors.New("condition check failed")
	ErrInvalidLimit    = errors.New("invalid query limit")
	ErrClosed          = errors.New("store closed")
)
