// Package audit builds and persists match attempt records. Every processed
// email leaves exactly one record, matched or not, so a disputed transfer
// can be reconstructed from the log alone.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/pkg/logger"
)

// Sink persists attempt records
type Sink interface {
	// Append stores one record. Implementations are append-only.
	Append(ctx context.Context, record *models.MatchAttemptRecord) error

	// Close releases the sink's resources
	Close() error
}

// Recorder assembles attempt records from processing context
type Recorder struct {
	sink   Sink
	logger logger.Logger
}

// NewRecorder creates a recorder writing to the given sink
func NewRecorder(sink Sink, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Recorder{
		sink:   sink,
		logger: log.WithComponent("audit"),
	}
}

// Attempt captures everything known about one processing pass over an
// email. Fields may be nil or empty when the pipeline failed before
// producing them.
type Attempt struct {
	Message     *models.RawEmailMessage
	Transaction *models.ExtractedTransaction
	Request     *models.PendingPaymentRequest
	Decision    *models.MatchDecision
	Result      models.MatchResult
	Reason      string
	SearchTerm  string
	StartedAt   time.Time
}

// Record builds the attempt record and appends it to the sink. The record
// is returned even when persistence fails so callers can still log it.
func (r *Recorder) Record(ctx context.Context, attempt *Attempt) (*models.MatchAttemptRecord, error) {
	record := &models.MatchAttemptRecord{
		ID:        uuid.NewString(),
		Result:    attempt.Result,
		Reason:    attempt.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if !attempt.StartedAt.IsZero() {
		record.ProcessingTimeMS = float64(time.Since(attempt.StartedAt).Microseconds()) / 1000
	}

	if msg := attempt.Message; msg != nil {
		record.EmailSubject = msg.Subject
		record.EmailFrom = msg.From
		record.EmailDate = msg.ReceivedAt
		record.TextSnippet = TextSnippet(msg.TextBody, attempt.SearchTerm)
		record.HTMLSnippet = HTMLSnippet(msg.HTMLBody, attempt.SearchTerm)
	}

	if tx := attempt.Transaction; tx != nil {
		if tx.HasAmount() {
			amount := tx.Amount
			record.ExtractedAmount = &amount
		}
		record.ExtractedName = tx.SenderName
		record.ExtractedAccount = tx.AccountNumber
		record.ExtractionMethod = tx.ExtractionMethod
	}

	if req := attempt.Request; req != nil {
		record.RequestID = req.ID
		record.TransactionID = req.TransactionID
		amount := req.Amount
		record.RequestAmount = &amount
		record.RequestPayerName = req.PayerName
		record.RequestAccount = req.AccountNumber
		record.RequestCreatedAt = req.CreatedAt
	}

	if d := attempt.Decision; d != nil {
		diff := d.AmountDiff
		record.AmountDiff = &diff
		if d.NameSimilarityPercent > 0 {
			similarity := d.NameSimilarityPercent
			record.NameSimilarityPercent = &similarity
		}
		record.TimeDiffMinutes = d.TimeDiffMinutes
	}

	if err := record.Validate(); err != nil {
		r.logger.WithError(err).Warn("Attempt record failed validation, storing anyway")
	}

	if r.sink == nil {
		return record, nil
	}
	if err := r.sink.Append(ctx, record); err != nil {
		r.logger.WithError(err).WithFields(logger.Fields{
			"attempt_id": record.ID,
			"result":     record.Result,
		}).Error("Failed to persist attempt record")
		return record, err
	}
	return record, nil
}
