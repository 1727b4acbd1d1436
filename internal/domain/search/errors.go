package search

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidQuery  = errors.New("invalid search query")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Field-level query errors. Each one matches ErrInvalidQuery.
var (
	ErrInvalidPosition  = fmt.Errorf("%w: position", ErrInvalidQuery)
	ErrInvalidOrderBy   = fmt.Errorf("%w: orderBy", ErrInvalidQuery)
	ErrInvalidDirection = fmt.Errorf("%w: orderDirection", ErrInvalidQuery)
	ErrInvalidPageSize  = fmt.Errorf("%w: pageSize", ErrInvalidQuery)
)
