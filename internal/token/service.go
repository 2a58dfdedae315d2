package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/secureupload/internal/config"
	"github.com/abduss/secureupload/internal/metrics"
	"go.uber.org/zap"
)

const (
	tokenLength      = 24
	maxIssueAttempts = 3
)

// Store abstracts the durable token map.
type Store interface {
	// Create inserts a token, failing with ErrTokenExists if the value is taken.
	Create(ctx context.Context, token Token) error
	// Get returns the token or ErrTokenNotFound.
	Get(ctx context.Context, value string) (Token, error)
	// MarkConsumed sets consumed_at if it is unset, failing with ErrTokenConsumed otherwise.
	MarkConsumed(ctx context.Context, value string, at time.Time) error
}

// Service mints, validates and consumes upload tokens.
type Service struct {
	store         Store
	validity      time.Duration
	enforceExpiry bool
	singleUse     bool
	log           *zap.Logger
	nowFunc       func() time.Time
	generate      func() (string, error)
}

// NewService creates a Service with dependencies.
func NewService(store Store, cfg config.UploadConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:         store,
		validity:      cfg.TokenValidity,
		enforceExpiry: cfg.EnforceExpiry,
		singleUse:     cfg.SingleUseTokens,
		log:           log.Named("token"),
		nowFunc:       time.Now,
		generate:      generateValue,
	}
}

// Issue mints a token for clientID valid for the configured window.
func (s *Service) Issue(ctx context.Context, clientID string) (Token, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Token{}, ErrInvalidClientID
	}

	now := s.nowFunc().UTC().Truncate(time.Microsecond)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := s.generate()
		if err != nil {
			return Token{}, fmt.Errorf("generate token: %w", err)
		}

		tok := Token{
			Value:     value,
			ClientID:  clientID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.validity),
		}

		err = s.store.Create(ctx, tok)
		if errors.Is(err, ErrTokenExists) {
			s.log.Warn("token collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Token{}, fmt.Errorf("store token: %w", err)
		}

		metrics.TokenIssued()
		s.log.Info("token issued", zap.String("client_id", clientID), zap.Time("expires_at", tok.ExpiresAt))
		return tok, nil
	}

	return Token{}, fmt.Errorf("issue token after %d attempts: %w", maxIssueAttempts, ErrTokenExists)
}

// Validate returns the stored token if it may still be used.
func (s *Service) Validate(ctx context.Context, value string) (Token, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Token{}, s.reject("not_found", ErrInvalidToken)
	}

	tok, err := s.store.Get(ctx, value)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Token{}, s.reject("not_found", ErrInvalidToken)
		}
		return Token{}, fmt.Errorf("load token: %w", err)
	}

	if s.singleUse && tok.ConsumedAt != nil {
		return Token{}, s.reject("consumed", ErrTokenConsumed)
	}
	if s.enforceExpiry && tok.Expired(s.nowFunc()) {
		return Token{}, s.reject("expired", ErrTokenExpired)
	}

	return tok, nil
}

// Consume moves a single-use token to the consumed state. It is a no-op when
// tokens are reusable.
func (s *Service) Consume(ctx context.Context, value string) error {
	if !s.singleUse {
		return nil
	}

	err := s.store.MarkConsumed(ctx, value, s.nowFunc().UTC())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTokenNotFound):
		return s.reject("not_found", ErrInvalidToken)
	case errors.Is(err, ErrTokenConsumed):
		return s.reject("consumed", ErrTokenConsumed)
	default:
		return fmt.Errorf("consume token: %w", err)
	}
}

func (s *Service) reject(reason string, err error) error {
	metrics.TokenRejected(reason)
	s.log.Info("token rejected", zap.String("reason", reason))
	return err
}

func generateValue() (string, error) {
	raw := make([]byte, tokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
