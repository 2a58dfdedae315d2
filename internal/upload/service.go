// Package upload records confirmed uploads in the audit store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/secureupload/internal/config"
	"github.com/abduss/secureupload/internal/grant"
	"github.com/abduss/secureupload/internal/metrics"
	"github.com/abduss/secureupload/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmedMessage is returned for every successful confirmation.
const ConfirmedMessage = "Upload confirmed"

// auditNamespace seeds deterministic audit ids when deduplication is on.
var auditNamespace = uuid.MustParse("6f1c9b52-3c1e-4d8e-9a57-2f0c4e7d9b10")

// AuditStore is the append-only audit log.
type AuditStore interface {
	// Append inserts rec. With ifAbsent set, an existing record with the same
	// id yields ErrRecordExists instead of a second row.
	Append(ctx context.Context, rec AuditRecord, ifAbsent bool) error
}

type tokenService interface {
	Validate(ctx context.Context, value string) (token.Token, error)
	Consume(ctx context.Context, value string) error
}

type receiptVerifier interface {
	Verify(receipt string) (grant.ReceiptClaims, error)
}

// Service confirms uploads against a valid token.
type Service struct {
	tokens         tokenService
	audit          AuditStore
	receipts       receiptVerifier
	bucket         string
	keyPrefix      string
	requireReceipt bool
	deduplicate    bool
	log            *zap.Logger
	nowFunc        func() time.Time
}

// NewService wires the confirmer. receipts may be nil when receipts are disabled.
func NewService(tokens tokenService, audit AuditStore, receipts *grant.Receipts, bucket string, cfg config.UploadConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		tokens:         tokens,
		audit:          audit,
		bucket:         bucket,
		keyPrefix:      cfg.KeyPrefix,
		requireReceipt: cfg.RequireReceipt,
		deduplicate:    cfg.DeduplicateAudit,
		log:            log.Named("upload"),
		nowFunc:        time.Now,
	}
	if receipts != nil {
		s.receipts = receipts
	}
	return s
}

// Confirm validates the token and grant binding, then appends an audit record.
func (s *Service) Confirm(ctx context.Context, in Confirmation) (string, error) {
	in.Filename = strings.TrimSpace(in.Filename)
	in.ContentType = strings.TrimSpace(in.ContentType)
	if in.Filename == "" || in.ContentType == "" {
		metrics.ConfirmationResult(metrics.ResultInvalid)
		return "", ErrMissingFields
	}
	if !validFilename(in.Filename) {
		metrics.ConfirmationResult(metrics.ResultInvalid)
		return "", ErrInvalidFilename
	}

	tok, err := s.tokens.Validate(ctx, in.Token)
	if err != nil {
		metrics.ConfirmationResult(resultFor(err))
		return "", err
	}

	key := grant.ObjectKey(s.keyPrefix, in.Filename)
	if err := s.checkGrant(tok.Value, key, in); err != nil {
		metrics.ConfirmationResult(resultFor(err))
		return "", err
	}

	if err := s.tokens.Consume(ctx, tok.Value); err != nil {
		metrics.ConfirmationResult(resultFor(err))
		return "", err
	}

	rec := AuditRecord{
		ID:        s.recordID(tok.Value, key),
		Token:     tok.Value,
		ClientID:  tok.ClientID,
		Filename:  in.Filename,
		Mimetype:  in.ContentType,
		FileURL:   fmt.Sprintf("s3://%s/%s", s.bucket, key),
		Key:       key,
		Timestamp: s.nowFunc().UTC(),
	}

	err = s.audit.Append(ctx, rec, s.deduplicate)
	switch {
	case err == nil:
		s.log.Info("upload confirmed",
			zap.String("client_id", rec.ClientID),
			zap.String("key", key),
			zap.String("audit_id", rec.ID),
		)
	case errors.Is(err, ErrRecordExists) && s.deduplicate:
		s.log.Info("upload already confirmed", zap.String("audit_id", rec.ID))
	default:
		metrics.ConfirmationResult(metrics.ResultError)
		return "", fmt.Errorf("append audit record: %w", err)
	}

	metrics.ConfirmationResult(metrics.ResultOK)
	return ConfirmedMessage, nil
}

func (s *Service) checkGrant(tokenValue, key string, in Confirmation) error {
	if in.Key != "" && in.Key != key {
		return ErrGrantMismatch
	}

	if in.Receipt == "" {
		if s.requireReceipt {
			return ErrReceiptRequired
		}
		return nil
	}
	if s.receipts == nil {
		return ErrGrantMismatch
	}

	claims, err := s.receipts.Verify(in.Receipt)
	if err != nil {
		return ErrGrantMismatch
	}
	if claims.Token() != tokenValue || claims.Key != key || claims.ContentType != in.ContentType {
		return ErrGrantMismatch
	}
	return nil
}

func (s *Service) recordID(tokenValue, key string) string {
	if s.deduplicate {
		return uuid.NewSHA1(auditNamespace, []byte(tokenValue+"\x00"+key)).String()
	}
	return uuid.NewString()
}

func validFilename(name string) bool {
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, ErrGrantMismatch):
		return metrics.ResultDenied
	case errors.Is(err, ErrReceiptRequired):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
