package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abduss/secureupload/internal/config"
)

func testConfig() config.UploadConfig {
	return config.UploadConfig{
		TokenValidity: 72 * time.Hour,
		EnforceExpiry: true,
	}
}

func newTestService(store Store, cfg config.UploadConfig, now time.Time) *Service {
	svc := NewService(store, cfg, nil)
	svc.nowFunc = func() time.Time { return now }
	return svc
}

func TestIssueSetsFixedExpiry(t *testing.T) {
	store := NewMemoryRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, testConfig(), now)

	tok, err := svc.Issue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if tok.Value == "" {
		t.Fatalf("expected token value")
	}
	if tok.ClientID != "acme" {
		t.Fatalf("unexpected client id %q", tok.ClientID)
	}
	if !tok.ExpiresAt.Equal(tok.CreatedAt.Add(72 * time.Hour)) {
		t.Fatalf("expected expires_at = created_at + 72h, got %s and %s", tok.CreatedAt, tok.ExpiresAt)
	}
	if !tok.ExpiresAt.After(tok.CreatedAt) {
		t.Fatalf("expires_at must be after created_at")
	}

	stored, err := store.Get(context.Background(), tok.Value)
	if err != nil {
		t.Fatalf("expected token persisted: %v", err)
	}
	if stored.ClientID != "acme" {
		t.Fatalf("unexpected stored client id %q", stored.ClientID)
	}
}

func TestIssueRequiresClientID(t *testing.T) {
	svc := newTestService(NewMemoryRepository(), testConfig(), time.Now())

	for _, clientID := range []string{"", "   "} {
		if _, err := svc.Issue(context.Background(), clientID); err != ErrInvalidClientID {
			t.Fatalf("expected ErrInvalidClientID for %q, got %v", clientID, err)
		}
	}
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	svc := newTestService(NewMemoryRepository(), testConfig(), time.Now())

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		tok, err := svc.Issue(context.Background(), "acme")
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		if _, dup := seen[tok.Value]; dup {
			t.Fatalf("duplicate token %q", tok.Value)
		}
		seen[tok.Value] = struct{}{}
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	store := NewMemoryRepository()
	svc := newTestService(store, testConfig(), time.Now())

	values := []string{"taken", "taken", "fresh"}
	svc.generate = func() (string, error) {
		v := values[0]
		values = values[1:]
		return v, nil
	}
	_ = store.Create(context.Background(), Token{Value: "taken", ClientID: "other"})

	tok, err := svc.Issue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if tok.Value != "fresh" {
		t.Fatalf("expected retry to land on fresh value, got %q", tok.Value)
	}

	other, _ := store.Get(context.Background(), "taken")
	if other.ClientID != "other" {
		t.Fatalf("existing token must not be overwritten")
	}
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := NewMemoryRepository()
	svc := newTestService(store, testConfig(), time.Now())
	svc.generate = func() (string, error) { return "taken", nil }
	_ = store.Create(context.Background(), Token{Value: "taken", ClientID: "other"})

	if _, err := svc.Issue(context.Background(), "acme"); !errors.Is(err, ErrTokenExists) {
		t.Fatalf("expected ErrTokenExists, got %v", err)
	}
}

func TestIssueWrapsStoreFailure(t *testing.T) {
	svc := newTestService(&failingStore{err: errors.New("connection reset")}, testConfig(), time.Now())

	_, err := svc.Issue(context.Background(), "acme")
	if err == nil || errors.Is(err, ErrInvalidClientID) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	svc := newTestService(NewMemoryRepository(), testConfig(), time.Now())

	for _, value := range []string{"", "missing"} {
		if _, err := svc.Validate(context.Background(), value); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", value, err)
		}
	}
}

func TestValidateExpiry(t *testing.T) {
	store := NewMemoryRepository()
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, testConfig(), issued)

	tok, err := svc.Issue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.nowFunc = func() time.Time { return tok.ExpiresAt }
	if _, err := svc.Validate(context.Background(), tok.Value); err != nil {
		t.Fatalf("token must be valid at its expiry instant: %v", err)
	}

	svc.nowFunc = func() time.Time { return tok.ExpiresAt.Add(time.Second) }
	if _, err := svc.Validate(context.Background(), tok.Value); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired tokens must classify as ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpiryCanBeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnforceExpiry = false
	store := NewMemoryRepository()
	svc := newTestService(store, cfg, time.Now())

	tok, err := svc.Issue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.nowFunc = func() time.Time { return tok.ExpiresAt.Add(24 * time.Hour) }
	if _, err := svc.Validate(context.Background(), tok.Value); err != nil {
		t.Fatalf("expected expired token to be accepted, got %v", err)
	}
}

func TestConsumeSingleUse(t *testing.T) {
	cfg := testConfig()
	cfg.SingleUseTokens = true
	svc := newTestService(NewMemoryRepository(), cfg, time.Now())

	tok, err := svc.Issue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if err := svc.Consume(context.Background(), tok.Value); err != nil {
		t.Fatalf("first Consume returned error: %v", err)
	}
	if err := svc.Consume(context.Background(), tok.Value); !errors.Is(err, ErrTokenConsumed) {
		t.Fatalf("expected ErrTokenConsumed on second consume, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected consumed token to be invalid, got %v", err)
	}
	if err := svc.Consume(context.Background(), "missing"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown token, got %v", err)
	}
}

func TestConsumeIsNoopForReusableTokens(t *testing.T) {
	store := NewMemoryRepository()
	svc := newTestService(store, testConfig(), time.Now())

	tok, err := svc.Issue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Consume(context.Background(), tok.Value); err != nil {
			t.Fatalf("Consume returned error: %v", err)
		}
	}
	stored, _ := store.Get(context.Background(), tok.Value)
	if stored.ConsumedAt != nil {
		t.Fatalf("reusable token must not be marked consumed")
	}
}

func TestTokenState(t *testing.T) {
	now := time.Now()
	tok := Token{CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	if tok.State(now) != StateActive {
		t.Fatalf("expected active")
	}
	if tok.State(now.Add(2*time.Hour)) != StateExpired {
		t.Fatalf("expected expired")
	}
	tok.ConsumedAt = &now
	if tok.State(now) != StateConsumed {
		t.Fatalf("expected consumed")
	}
}

type failingStore struct {
	err error
}

func (f *failingStore) Create(ctx context.Context, tok Token) error { return f.err }

func (f *failingStore) Get(ctx context.Context, value string) (Token, error) {
	return Token{}, f.err
}

func (f *failingStore) MarkConsumed(ctx context.Context, value string, at time.Time) error {
	return f.err
}
