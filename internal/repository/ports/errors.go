package ports

import "errors"

// Errors shared by every message store backend.
var (
	ErrNotFound   = errors.New("message not found")
	ErrInvalidID  = errors.New("invalid message id")
	ErrConflict   = errors.New("message state changed concurrently")
	ErrValidation = errors.New("message validation failed")
)
