package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyName     = errors.New("name cannot be empty")
	ErrInvalidSpan   = errors.New("start byte must not exceed end byte")
	ErrInvalidOrder  = errors.New("order must be >= 1")
	ErrMissingParent = errors.New("parent id is required")
	ErrEmptyContent  = errors.New("content cannot be empty")
)
