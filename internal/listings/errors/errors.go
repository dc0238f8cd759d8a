package errors

import "errors"

var (
	// ErrNotFound covers both a missing listing and one owned by someone else.
	ErrNotFound = errors.New("listing not found")

	ErrInvalidID = errors.New("invalid listing ID format")
)
