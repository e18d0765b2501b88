package matcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/pkg/logger"
)

// ApprovedStore looks up recently approved payments for duplicate checks
type ApprovedStore interface {
	// FindApproved returns approved payments with the given received
	// amount and normalized payer name settled at or after since
	FindApproved(ctx context.Context, amount decimal.Decimal, payerName string, since time.Time) ([]*models.PendingPaymentRequest, error)

	// FindApprovedByFingerprint returns approved payments whose settling
	// transaction carried the given fingerprint at or after since
	FindApprovedByFingerprint(ctx context.Context, fingerprint string, since time.Time) ([]*models.PendingPaymentRequest, error)
}

// DuplicateDetector guards against crediting the same transfer twice when
// a bank re-delivers a notification. It fails open: an error during the
// lookup logs a warning and reports no duplicate, because blocking every
// payment on a flaky store is worse than the rare double notification.
type DuplicateDetector struct {
	store  ApprovedStore
	window time.Duration
	logger logger.Logger
}

// NewDuplicateDetector creates a detector over the approved-payment store
func NewDuplicateDetector(store ApprovedStore, window time.Duration, log logger.Logger) *DuplicateDetector {
	if window <= 0 {
		window = time.Hour
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &DuplicateDetector{
		store:  store,
		window: window,
		logger: log.WithComponent("duplicate"),
	}
}

// IsDuplicate reports whether the transaction re-states a payment already
// approved inside the trailing window. The template fingerprint is checked
// first; without one the amount plus payer name identify the transfer,
// and an empty payer name is compared as empty so re-deliveries of alerts
// with no extractable sender are still caught.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, tx *models.ExtractedTransaction, now time.Time) bool {
	if d.store == nil || tx == nil {
		return false
	}

	since := now.Add(-d.window)

	if tx.Fingerprint != "" {
		approved, err := d.store.FindApprovedByFingerprint(ctx, tx.Fingerprint, since)
		if err != nil {
			d.logger.WithError(err).WithFields(logger.Fields{
				"fingerprint": tx.Fingerprint,
			}).Warn("Fingerprint duplicate check failed, continuing without it")
		} else if len(approved) > 0 {
			d.logger.WithFields(logger.Fields{
				"fingerprint": tx.Fingerprint,
				"existing":    approved[0].ID,
			}).Info("Duplicate transaction detected by fingerprint")
			return true
		}
	}

	approved, err := d.store.FindApproved(ctx, tx.Amount, models.NormalizeName(tx.SenderName), since)
	if err != nil {
		d.logger.WithError(err).WithFields(logger.Fields{
			"amount": tx.Amount.String(),
			"payer":  tx.SenderName,
		}).Warn("Duplicate check failed, continuing without it")
		return false
	}

	if len(approved) > 0 {
		d.logger.WithFields(logger.Fields{
			"amount":   tx.Amount.String(),
			"payer":    tx.SenderName,
			"existing": approved[0].ID,
		}).Info("Duplicate payment detected")
		return true
	}
	return false
}
