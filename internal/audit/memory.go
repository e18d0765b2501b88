package audit

import (
	"context"
	"sync"

	"email-payment-reconciler/internal/models"
)

// MemorySink keeps attempt records in memory. Used in tests and one-shot
// runs where nothing needs to survive the process.
type MemorySink struct {
	mu      sync.Mutex
	records []*models.MatchAttemptRecord
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores one record
func (m *MemorySink) Append(_ context.Context, record *models.MatchAttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of the stored records in append order
func (m *MemorySink) Records() []*models.MatchAttemptRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.MatchAttemptRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Close is a no-op
func (m *MemorySink) Close() error {
	return nil
}
