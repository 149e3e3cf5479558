package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrVersionConflict = errors.New("booking version mismatch")

	ErrServiceNotFound = errors.New("service not found")
)
