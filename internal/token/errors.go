package token

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidClientID is returned when a token is requested without a client id.
	ErrInvalidClientID = errors.New("client_id is required")
	// ErrInvalidToken covers every reason a presented token cannot be used.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenExpired signals a token presented after its expiry.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	// ErrTokenConsumed signals a single-use token that was already used.
	ErrTokenConsumed = fmt.Errorf("%w: already used", ErrInvalidToken)

	// ErrTokenNotFound is returned by stores when no record exists.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExists is returned by stores when the identifier is already taken.
	ErrTokenExists = errors.New("token already exists")
)
