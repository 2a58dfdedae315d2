// Package auth guards operator-only endpoints with a shared key.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// maxKeyLength is the bcrypt input limit.
const maxKeyLength = 72

// Service checks presented operator keys against a bcrypt hash.
type Service struct {
	hash []byte
}

// NewService validates the configured hash. An empty hash disables the check.
func NewService(keyHash string) (*Service, error) {
	keyHash = strings.TrimSpace(keyHash)
	if keyHash == "" {
		return &Service{}, nil
	}
	if _, err := bcrypt.Cost([]byte(keyHash)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyHash, err)
	}
	return &Service{hash: []byte(keyHash)}, nil
}

// Enabled reports whether an operator key is configured.
func (s *Service) Enabled() bool {
	return len(s.hash) > 0
}

// Verify returns ErrUnauthorized unless key matches the configured hash.
func (s *Service) Verify(key string) error {
	if !s.Enabled() {
		return nil
	}
	if key == "" || len(key) > maxKeyLength {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(key)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrUnauthorized
		}
		return fmt.Errorf("compare operator key: %w", err)
	}
	return nil
}

// HashKey derives a bcrypt hash suitable for SECUREUPLOAD_OPERATOR_KEY_HASH.
func HashKey(key string, cost int) (string, error) {
	if key == "" || len(key) > maxKeyLength {
		return "", fmt.Errorf("operator key must be 1-%d bytes", maxKeyLength)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash operator key: %w", err)
	}
	return string(hash), nil
}
