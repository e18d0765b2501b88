package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
)

// MemoryStore keeps payment requests in memory, for tests and dry runs
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*memoryRequest
}

type memoryRequest struct {
	req                 models.PendingPaymentRequest
	approvedAmount      decimal.Decimal
	approvedPayerName   string
	approvedFingerprint string
	approvedAt          time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*memoryRequest)}
}

// Insert adds a request
func (s *MemoryStore) Insert(_ context.Context, req *models.PendingPaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *req
	s.requests[req.ID] = &memoryRequest{req: copied}
	return nil
}

// ListPending returns pending requests oldest first
func (s *MemoryStore) ListPending(_ context.Context, accountNumber string) ([]*models.PendingPaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.PendingPaymentRequest
	for _, entry := range s.requests {
		if entry.req.Status != models.StatusPending {
			continue
		}
		if accountNumber != "" && entry.req.AccountNumber != accountNumber {
			continue
		}
		copied := entry.req
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ApproveIfPending flips a request to approved only while still pending,
// keeping the received amount, payer name, and fingerprint for later
// duplicate lookups
func (s *MemoryStore) ApproveIfPending(_ context.Context, requestID string, approval Approval) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.requests[requestID]
	if !ok || entry.req.Status != models.StatusPending {
		return false, nil
	}
	entry.req.Status = models.StatusApproved
	entry.approvedAmount = approval.Amount
	entry.approvedPayerName = models.NormalizeName(approval.PayerName)
	entry.approvedFingerprint = approval.Fingerprint
	entry.approvedAt = approval.ApprovedAt
	return true, nil
}

// FindApproved returns approved requests matching amount and payer name
// settled at or after since
func (s *MemoryStore) FindApproved(_ context.Context, amount decimal.Decimal, payerName string, since time.Time) ([]*models.PendingPaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := models.NormalizeName(payerName)
	var out []*models.PendingPaymentRequest
	for _, entry := range s.requests {
		if entry.req.Status != models.StatusApproved {
			continue
		}
		if !entry.approvedAmount.Equal(amount) || entry.approvedPayerName != want {
			continue
		}
		if entry.approvedAt.Before(since) {
			continue
		}
		copied := entry.req
		out = append(out, &copied)
	}
	return out, nil
}

// FindApprovedByFingerprint returns approved requests settled by a
// transaction with the given fingerprint at or after since
func (s *MemoryStore) FindApprovedByFingerprint(_ context.Context, fingerprint string, since time.Time) ([]*models.PendingPaymentRequest, error) {
	if fingerprint == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.PendingPaymentRequest
	for _, entry := range s.requests {
		if entry.req.Status != models.StatusApproved {
			continue
		}
		if entry.approvedFingerprint != fingerprint || entry.approvedAt.Before(since) {
			continue
		}
		copied := entry.req
		out = append(out, &copied)
	}
	return out, nil
}

// Get returns a copy of the request with the given ID
func (s *MemoryStore) Get(id string) (*models.PendingPaymentRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.requests[id]
	if !ok {
		return nil, false
	}
	copied := entry.req
	return &copied, true
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
