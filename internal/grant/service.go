// Package grant turns a valid upload token into a scoped, short-lived storage write grant.
package grant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abduss/secureupload/internal/config"
	"github.com/abduss/secureupload/internal/metrics"
	"github.com/abduss/secureupload/internal/policy"
	"github.com/abduss/secureupload/internal/presigned"
	"github.com/abduss/secureupload/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type tokenValidator interface {
	Validate(ctx context.Context, value string) (token.Token, error)
}

// Request is an already-parsed grant request. Extension and ContentType may be empty.
type Request struct {
	Token       string
	Extension   string
	ContentType string
}

// Grant is the ephemeral result of a successful request. It is never persisted.
type Grant struct {
	UploadURL   string
	Method      string
	Headers     http.Header
	Filename    string
	Key         string
	ContentType string
	ExpiresIn   time.Duration
	IssuedAt    time.Time
	Receipt     string
}

// Service issues upload grants.
type Service struct {
	tokens    tokenValidator
	policy    *policy.Engine
	grantor   presigned.Grantor
	receipts  *Receipts
	keyPrefix string
	expiry    time.Duration
	log       *zap.Logger
	nowFunc   func() time.Time
	newFileID func() string
}

// NewService wires the grant issuer. receipts may be nil.
func NewService(tokens tokenValidator, engine *policy.Engine, grantor presigned.Grantor, receipts *Receipts, cfg config.UploadConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tokens:    tokens,
		policy:    engine,
		grantor:   grantor,
		receipts:  receipts,
		keyPrefix: cfg.KeyPrefix,
		expiry:    cfg.GrantExpiry,
		log:       log.Named("grant"),
		nowFunc:   time.Now,
		newFileID: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Grant validates the token and policy, then asks the storage grantor for a
// write URL scoped to a freshly derived key. Every call yields a new key.
func (s *Service) Grant(ctx context.Context, req Request) (Grant, error) {
	tok, err := s.tokens.Validate(ctx, req.Token)
	if err != nil {
		metrics.GrantResult(resultFor(err))
		return Grant{}, err
	}

	resolved, err := s.policy.Resolve(req.Extension, req.ContentType)
	if err != nil {
		metrics.GrantResult(metrics.ResultUnsupported)
		return Grant{}, err
	}

	filename := fmt.Sprintf("%s.%s", s.newFileID(), resolved.Extension)
	key := ObjectKey(s.keyPrefix, filename)

	signed, err := s.grantor.PresignPut(ctx, presigned.PutRequest{
		Key:         key,
		ContentType: resolved.ContentType,
		Expires:     s.expiry,
	})
	if err != nil {
		metrics.GrantResult(metrics.ResultError)
		return Grant{}, fmt.Errorf("presign upload: %w", err)
	}

	issuedAt := s.nowFunc().UTC()
	g := Grant{
		UploadURL:   signed.URL,
		Method:      signed.Method,
		Headers:     signed.Headers,
		Filename:    filename,
		Key:         key,
		ContentType: resolved.ContentType,
		ExpiresIn:   s.expiry,
		IssuedAt:    issuedAt,
	}

	if s.receipts != nil {
		receipt, err := s.receipts.Sign(tok.Value, key, resolved.ContentType, issuedAt)
		if err != nil {
			metrics.GrantResult(metrics.ResultError)
			return Grant{}, err
		}
		g.Receipt = receipt
	}

	metrics.GrantResult(metrics.ResultOK)
	s.log.Info("upload granted",
		zap.String("client_id", tok.ClientID),
		zap.String("key", key),
		zap.String("content_type", resolved.ContentType),
	)
	return g, nil
}

// ObjectKey composes the storage key for filename under prefix.
func ObjectKey(prefix, filename string) string {
	if prefix == "" {
		return filename
	}
	return prefix + "/" + filename
}

func resultFor(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	if isTokenError(err) {
		return metrics.ResultDenied
	}
	return metrics.ResultError
}
