// Package store persists pending payment requests. The only status
// transition it performs is pending to approved, and that through a
// conditional update so two workers processing the same alert cannot both
// claim one request.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
)

// Approval captures what actually arrived when a request settles: the
// received amount, the extracted payer name (possibly empty), and the
// transaction fingerprint when a bank template produced one. The store
// keeps all three so re-delivered notifications can be recognized later.
type Approval struct {
	Amount      decimal.Decimal
	PayerName   string
	Fingerprint string
	ApprovedAt  time.Time
}

// RequestStore is the engine's view of pending payment requests
type RequestStore interface {
	// ListPending returns requests still awaiting settlement, oldest
	// first, optionally scoped to one pool account
	ListPending(ctx context.Context, accountNumber string) ([]*models.PendingPaymentRequest, error)

	// ApproveIfPending transitions a request to approved only if it is
	// still pending. Returns false without error when another worker got
	// there first.
	ApproveIfPending(ctx context.Context, requestID string, approval Approval) (bool, error)

	// FindApproved returns approved requests with the given received
	// amount and normalized payer name settled at or after since
	FindApproved(ctx context.Context, amount decimal.Decimal, payerName string, since time.Time) ([]*models.PendingPaymentRequest, error)

	// FindApprovedByFingerprint returns approved requests settled by a
	// transaction with the given fingerprint at or after since
	FindApprovedByFingerprint(ctx context.Context, fingerprint string, since time.Time) ([]*models.PendingPaymentRequest, error)

	// Close releases the store's resources
	Close() error
}
