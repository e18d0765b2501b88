package reconciler

import (
	"context"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/pkg/logger"
)

// BatchSummary aggregates the outcomes of one scan run
type BatchSummary struct {
	Processed  int
	Matched    int
	Unmatched  int
	Duplicates int
	Failures   int
	Outcomes   []*Outcome
}

// ProcessBatch runs the pipeline over a slice of emails in order. Emails
// against one account must be processed sequentially so first-match-wins
// stays deterministic; the slice is assumed to be in received order.
// A failure on one email is counted and the scan continues.
func (e *Engine) ProcessBatch(ctx context.Context, msgs []*models.RawEmailMessage) (*BatchSummary, error) {
	tracker := logger.NewScanTracker("process_batch", e.logger)
	summary := &BatchSummary{}

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := e.ProcessEmail(ctx, msg)
		summary.Processed++
		failed := err != nil
		if failed {
			summary.Failures++
			e.logger.WithError(err).WithField("subject", msg.Subject).Error("Email processing failed")
			tracker.Record(false, false, true)
			continue
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
		switch outcome.Result {
		case models.ResultMatched:
			summary.Matched++
		case models.ResultDuplicate:
			summary.Duplicates++
		default:
			summary.Unmatched++
		}
		if outcome.AuditErr != nil {
			summary.Failures++
		}
		tracker.Record(outcome.Matched(), outcome.Result == models.ResultDuplicate, outcome.AuditErr != nil)
	}

	tracker.Complete()
	return summary, nil
}
