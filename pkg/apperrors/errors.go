package apperrors

import "errors"

var (
	ErrQueueCleared        = errors.New("rate limiter queue cleared")
	ErrInvalidEntityName   = errors.New("invalid entity name")
	ErrNotFound            = errors.New("not found")
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	ErrMappingExists       = errors.New("mapping name already in use")
)
