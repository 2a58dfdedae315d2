package auth

import "errors"

var (
	// ErrUnauthorized represents a missing or incorrect operator key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidKeyHash signals a configured hash bcrypt cannot parse.
	ErrInvalidKeyHash = errors.New("invalid operator key hash")
)
