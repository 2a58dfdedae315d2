package token

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-process token store for development and tests.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]Token
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]Token)}
}

func (m *MemoryRepository) Create(ctx context.Context, tok Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[tok.Value]; ok {
		return ErrTokenExists
	}
	m.tokens[tok.Value] = tok
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, value string) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[value]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return tok, nil
}

func (m *MemoryRepository) MarkConsumed(ctx context.Context, value string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[value]
	if !ok {
		return ErrTokenNotFound
	}
	if tok.ConsumedAt != nil {
		return ErrTokenConsumed
	}
	tok.ConsumedAt = &at
	m.tokens[value] = tok
	return nil
}
