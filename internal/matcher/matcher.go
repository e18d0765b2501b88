// Package matcher decides whether an extracted bank transfer settles a
// pending payment request.
//
// The decision is name-first: when the request carries a payer name and
// the email yielded a sender name, a name match unlocks amount tolerance,
// so a transfer that is short by a few naira from the right person still
// approves (flagged as a mismatch for follow-up) while an exact amount
// from the wrong person does not silently claim someone else's request.
// Without name evidence the amount must match exactly.
package matcher

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/pkg/logger"
)

// Matcher evaluates extracted transactions against pending requests
type Matcher struct {
	config *MatchingConfig
	logger logger.Logger
}

// NewMatcher creates a matcher with the given configuration
func NewMatcher(config *MatchingConfig, log logger.Logger) (*Matcher, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Matcher{
		config: config,
		logger: log.WithComponent("matcher"),
	}, nil
}

// Config returns the matcher's configuration
func (m *Matcher) Config() *MatchingConfig {
	return m.config.Clone()
}

// Match decides whether tx settles request, given the time the email was
// received. The returned decision always carries a reason; callers log it
// into the attempt record verbatim.
//
// othersWithSameAmount is the count of OTHER pending requests whose amount
// equals this request's: when several requests await the same amount, only
// a name match may claim the transfer.
func (m *Matcher) Match(request *models.PendingPaymentRequest, tx *models.ExtractedTransaction, emailDate time.Time, othersWithSameAmount int) *models.MatchDecision {
	decision := &models.MatchDecision{}

	// Time window first. An email that predates the request cannot be
	// its settlement no matter what else lines up.
	timeDiff := int(emailDate.Sub(request.CreatedAt).Minutes())
	decision.TimeDiffMinutes = &timeDiff
	if emailDate.Before(request.CreatedAt) {
		decision.Reason = fmt.Sprintf("email received %d minutes before request creation", -timeDiff)
		return decision
	}
	if timeDiff > m.config.TimeWindowMinutes {
		decision.Reason = fmt.Sprintf("email received %d minutes after request creation, outside %d minute window",
			timeDiff, m.config.TimeWindowMinutes)
		return decision
	}

	if !tx.HasAmount() {
		decision.Reason = "no amount extracted from email"
		return decision
	}
	if tx.Amount.LessThan(m.config.MinimumAmount) {
		decision.Reason = fmt.Sprintf("extracted amount %s below minimum %s", tx.Amount, m.config.MinimumAmount)
		return decision
	}

	received := tx.Amount
	decision.ReceivedAmount = &received
	amountDiff := request.Amount.Sub(received)
	decision.AmountDiff = amountDiff
	amountExact := amountDiff.Abs().LessThanOrEqual(m.config.AmountTolerance)

	// Name evidence gates everything that follows
	if request.PayerName != "" {
		if tx.SenderName == "" {
			decision.Reason = "request expects a payer name but none could be extracted from the email"
			return decision
		}

		similarity := NameSimilarity(request.PayerName, tx.SenderName)
		decision.NameSimilarityPercent = int(similarity)
		nameMatched := similarity >= m.config.NameSimilarityThreshold

		if nameMatched {
			// The right person paid. A shortfall at or above the ceiling
			// is too large to wave through even so.
			if !amountExact && amountDiff.GreaterThanOrEqual(m.config.LargeMismatchCeiling) {
				decision.Reason = fmt.Sprintf(
					"payer name matched (%.0f%%) but received amount %s is short of expected %s by %s, at or above the %s ceiling",
					similarity, received, request.Amount, amountDiff, m.config.LargeMismatchCeiling)
				return decision
			}

			decision.Matched = true
			if amountExact {
				decision.Reason = fmt.Sprintf("payer name matched (%.0f%%) with exact amount %s", similarity, received)
			} else {
				decision.IsMismatch = true
				decision.MismatchReason = mismatchWording(request.Amount, received, amountDiff)
				decision.Reason = fmt.Sprintf("payer name matched (%.0f%%); %s", similarity, decision.MismatchReason)
			}
			return decision
		}

		// Name similarity below threshold: only an exact amount can
		// still carry the match, and never when the amount is ambiguous
		// across pending requests.
		if amountExact {
			if othersWithSameAmount > 0 {
				decision.Reason = fmt.Sprintf(
					"amount %s matches but so do %d other pending requests, and payer name similarity %.0f%% is below %.0f%%",
					received, othersWithSameAmount, similarity, m.config.NameSimilarityThreshold)
				return decision
			}
			decision.Matched = true
			decision.NameMismatch = true
			decision.Reason = fmt.Sprintf(
				"exact amount %s matched but payer name similarity %.0f%% is below %.0f%% threshold",
				received, similarity, m.config.NameSimilarityThreshold)
			return decision
		}

		decision.Reason = fmt.Sprintf(
			"payer name similarity %.0f%% below %.0f%% threshold and amount differs by %s",
			similarity, m.config.NameSimilarityThreshold, amountDiff.Abs())
		return decision
	}

	// No payer name on the request: exact amount is the only evidence
	if !amountExact {
		decision.Reason = fmt.Sprintf("expected %s but received %s, and no payer name on request to allow tolerance",
			request.Amount, received)
		return decision
	}
	if othersWithSameAmount > 0 {
		decision.Reason = fmt.Sprintf(
			"amount %s matches but %d other pending requests expect the same amount and no payer name disambiguates",
			received, othersWithSameAmount)
		return decision
	}

	decision.Matched = true
	decision.Reason = fmt.Sprintf("exact amount %s matched", received)
	return decision
}

func mismatchWording(expected, received, diff decimal.Decimal) string {
	if diff.IsPositive() {
		return fmt.Sprintf("received %s is %s short of expected %s", received, diff, expected)
	}
	return fmt.Sprintf("received %s overpays expected %s by %s", received, expected, diff.Neg())
}
