// Package reconciler drives the end-to-end pipeline for one alert email:
// bank template resolution, field extraction, duplicate detection, pending
// request matching, settlement, and the audit record.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/audit"
	"email-payment-reconciler/internal/banks"
	"email-payment-reconciler/internal/extract"
	"email-payment-reconciler/internal/matcher"
	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/store"
	pkgerrors "email-payment-reconciler/pkg/errors"
	"email-payment-reconciler/pkg/logger"
)

// Engine wires the extraction, matching, and audit components together
type Engine struct {
	registry  *banks.Registry
	extractor *extract.Extractor
	matcher   *matcher.Matcher
	duplicate *matcher.DuplicateDetector
	requests  store.RequestStore
	recorder  *audit.Recorder
	config    *matcher.MatchingConfig
	logger    logger.Logger
}

// Options configures engine construction. Zero-value fields fall back to
// sensible defaults; Requests is required.
type Options struct {
	Config   *matcher.MatchingConfig
	Requests store.RequestStore
	Sink     audit.Sink
	Registry *banks.Registry
	Logger   logger.Logger
}

// NewEngine creates an engine from the given options
func NewEngine(opts Options) (*Engine, error) {
	if opts.Requests == nil {
		return nil, pkgerrors.ConfigurationError(pkgerrors.CodeMissingConfig, "request_store", nil, nil)
	}
	config := opts.Config
	if config == nil {
		config = matcher.DefaultMatchingConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = banks.NewRegistry()
	}

	m, err := matcher.NewMatcher(config, log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry:  registry,
		extractor: extract.NewExtractor(log),
		matcher:   m,
		duplicate: matcher.NewDuplicateDetector(opts.Requests, config.DuplicateWindow, log),
		requests:  opts.Requests,
		recorder:  audit.NewRecorder(opts.Sink, log),
		config:    config,
		logger:    log.WithComponent("reconciler"),
	}, nil
}

// Outcome is the result of processing one email
type Outcome struct {
	Result      models.MatchResult
	Request     *models.PendingPaymentRequest
	Transaction *models.ExtractedTransaction
	Decision    *models.MatchDecision
	Record      *models.MatchAttemptRecord

	// AuditErr carries a persistence failure for the attempt record. The
	// settlement itself stands; the caller decides whether to alert.
	AuditErr error
}

// Matched reports whether the email settled a request
func (o *Outcome) Matched() bool {
	return o.Result == models.ResultMatched
}

// ProcessEmail runs the full pipeline over one email. It always returns an
// outcome with an attempt record; the error return is reserved for
// failures that prevented processing entirely, like a dead request store.
func (e *Engine) ProcessEmail(ctx context.Context, msg *models.RawEmailMessage) (*Outcome, error) {
	started := time.Now()
	log := e.logger.WithFields(logger.Fields{
		"from":    msg.From,
		"subject": msg.Subject,
	})

	if !msg.HasContent() {
		return e.recordUnmatched(ctx, msg, nil, nil, "email has no text or HTML body", started)
	}

	tx, templateErr := e.extractTransaction(msg)
	if templateErr != nil {
		// A recognized bank with a broken required field is a hard
		// failure: generic extraction on a known template hides layout
		// changes until money goes missing.
		log.WithError(templateErr).Error("Bank template failed on a recognized email")
		return e.recordUnmatched(ctx, msg, nil, nil, templateErr.Error(), started)
	}

	if tx.Type == models.TransactionDebit {
		log.Debug("Skipping debit alert")
		return e.recordUnmatched(ctx, msg, tx, nil, "debit alert, not a payment", started)
	}
	if !tx.HasAmount() {
		failure := pkgerrors.NewExtractionFailure(pkgerrors.CodeNoAmount, &pkgerrors.ExtractionContext{
			Subject: msg.Subject,
			From:    msg.From,
			Method:  tx.ExtractionMethod,
		}, "no plausible amount extracted", nil)
		if tx.Diagnostics != nil {
			failure.WithSteps(tx.Diagnostics.Steps)
		}
		log.WithError(failure).Warn("Extraction produced no amount")
		return e.recordUnmatched(ctx, msg, tx, nil, failure.Message, started)
	}
	if tx.Amount.LessThan(e.config.MinimumAmount) {
		return e.recordUnmatched(ctx, msg, tx, nil,
			fmt.Sprintf("amount %s below minimum %s", tx.Amount, e.config.MinimumAmount), started)
	}

	// Duplicate suppression before matching: a re-delivered notification
	// must not settle a second request. This runs even when no sender
	// name was extracted; the fingerprint or the amount-plus-empty-payer
	// pair still identifies the repeat.
	if e.duplicate.IsDuplicate(ctx, tx, msg.ReceivedAt) {
		return e.record(ctx, &audit.Attempt{
			Message:     msg,
			Transaction: tx,
			Result:      models.ResultDuplicate,
			Reason:      "payment with same amount and payer already approved within the duplicate window",
			SearchTerm:  tx.SenderName,
			StartedAt:   started,
		})
	}

	pending, err := e.requests.ListPending(ctx, tx.AccountNumber)
	if err != nil {
		return nil, pkgerrors.WrapIfNeeded(err, pkgerrors.CategoryStorage, pkgerrors.CodeQueryFailed,
			"failed to list pending requests")
	}
	if len(pending) == 0 && tx.AccountNumber != "" {
		// The account filter may be too narrow when the blob decoded a
		// masked or partial account; retry unscoped
		pending, err = e.requests.ListPending(ctx, "")
		if err != nil {
			return nil, pkgerrors.WrapIfNeeded(err, pkgerrors.CategoryStorage, pkgerrors.CodeQueryFailed,
				"failed to list pending requests")
		}
	}
	if len(pending) == 0 {
		return e.recordUnmatched(ctx, msg, tx, nil, "no pending requests to match against", started)
	}

	sameAmount := countSameAmount(pending, tx, e.config.AmountTolerance, msg.ReceivedAt)

	// Oldest request wins among qualifying candidates
	var lastDecision *models.MatchDecision
	var lastRequest *models.PendingPaymentRequest
	for _, request := range pending {
		if request.IsExpired(msg.ReceivedAt) {
			continue
		}
		decision := e.matcher.Match(request, tx, msg.ReceivedAt, sameAmount[request.ID])
		lastDecision, lastRequest = decision, request
		if !decision.Matched {
			continue
		}

		ok, err := e.requests.ApproveIfPending(ctx, request.ID, store.Approval{
			Amount:      tx.Amount,
			PayerName:   tx.SenderName,
			Fingerprint: tx.Fingerprint,
			ApprovedAt:  msg.ReceivedAt,
		})
		if err != nil {
			return nil, pkgerrors.WrapIfNeeded(err, pkgerrors.CategoryStorage, pkgerrors.CodeUpdateFailed,
				"failed to approve request")
		}
		if !ok {
			log.WithField("request_id", request.ID).Warn("Request was settled concurrently, continuing scan")
			continue
		}

		log.WithFields(logger.Fields{
			"request_id": request.ID,
			"amount":     tx.Amount.String(),
			"mismatch":   decision.IsMismatch,
		}).Info("Payment matched")

		return e.record(ctx, &audit.Attempt{
			Message:     msg,
			Transaction: tx,
			Request:     request,
			Decision:    decision,
			Result:      models.ResultMatched,
			Reason:      decision.Reason,
			SearchTerm:  tx.SenderName,
			StartedAt:   started,
		})
	}

	reason := "no pending request matched"
	if lastDecision != nil {
		reason = lastDecision.Reason
	}
	return e.record(ctx, &audit.Attempt{
		Message:     msg,
		Transaction: tx,
		Request:     lastRequest,
		Decision:    lastDecision,
		Result:      models.ResultUnmatched,
		Reason:      reason,
		SearchTerm:  tx.SenderName,
		StartedAt:   started,
	})
}

// extractTransaction resolves a bank template or falls back to generic
// extraction. The error is non-nil only for template hard failures.
func (e *Engine) extractTransaction(msg *models.RawEmailMessage) (*models.ExtractedTransaction, error) {
	if template := e.registry.Resolve(msg); template != nil {
		tx, err := template.Parse(msg)
		if err != nil {
			return nil, err
		}
		e.localizeValueDate(tx)
		return tx, nil
	}
	tx := e.extractor.Extract(msg)
	e.localizeValueDate(tx)
	return tx, nil
}

// localizeValueDate reinterprets the value date in the configured bank
// timezone. Bank notifications state value dates with no offset, so the
// parsers produce them in UTC; the calendar day is kept as written.
func (e *Engine) localizeValueDate(tx *models.ExtractedTransaction) {
	if tx.ValueDate.IsZero() {
		return
	}
	y, m, d := tx.ValueDate.Date()
	tx.ValueDate = time.Date(y, m, d, 0, 0, 0, 0, e.config.Location())
}

// countSameAmount returns, per request ID, how many OTHER pending requests
// expect an amount within tolerance of the transaction amount. Requests
// already expired at receipt time are excluded: they can never win the
// scan, so they must not make a live candidate look ambiguous either.
func countSameAmount(pending []*models.PendingPaymentRequest, tx *models.ExtractedTransaction, tolerance decimal.Decimal, receivedAt time.Time) map[string]int {
	counts := make(map[string]int, len(pending))
	total := 0
	for _, request := range pending {
		if request.IsExpired(receivedAt) {
			continue
		}
		if request.Amount.Sub(tx.Amount).Abs().LessThanOrEqual(tolerance) {
			total++
		}
	}
	for _, request := range pending {
		if request.IsExpired(receivedAt) {
			continue
		}
		if request.Amount.Sub(tx.Amount).Abs().LessThanOrEqual(tolerance) {
			counts[request.ID] = total - 1
		}
	}
	return counts
}

func (e *Engine) recordUnmatched(ctx context.Context, msg *models.RawEmailMessage, tx *models.ExtractedTransaction, decision *models.MatchDecision, reason string, started time.Time) (*Outcome, error) {
	searchTerm := ""
	if tx != nil {
		searchTerm = tx.SenderName
	}
	return e.record(ctx, &audit.Attempt{
		Message:     msg,
		Transaction: tx,
		Decision:    decision,
		Result:      models.ResultUnmatched,
		Reason:      reason,
		SearchTerm:  searchTerm,
		StartedAt:   started,
	})
}

func (e *Engine) record(ctx context.Context, attempt *audit.Attempt) (*Outcome, error) {
	record, err := e.recorder.Record(ctx, attempt)
	outcome := &Outcome{
		Result:      attempt.Result,
		Request:     attempt.Request,
		Transaction: attempt.Transaction,
		Decision:    attempt.Decision,
		Record:      record,
		AuditErr:    err,
	}
	return outcome, nil
}
