package upload

import (
	"context"
	"sync"
)

// MemoryRepository keeps audit records in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	records []AuditRecord
	ids     map[string]struct{}
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ids: make(map[string]struct{})}
}

func (m *MemoryRepository) Append(ctx context.Context, rec AuditRecord, ifAbsent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[rec.ID]; ok && ifAbsent {
		return ErrRecordExists
	}
	m.ids[rec.ID] = struct{}{}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of every appended record in insertion order.
func (m *MemoryRepository) Records() []AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditRecord(nil), m.records...)
}
