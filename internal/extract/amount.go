package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/normalize"
)

// minPlausibleAmount filters out stray small numbers (years, counters,
// table indices) that the looser currency patterns would otherwise accept.
var minPlausibleAmount = decimal.NewFromInt(10)

var (
	amountLabelText = regexp.MustCompile(`(?i)amount\s*:?\s*(?:NGN|₦|N)?\s*([\d,]+(?:\.\d{1,2})?)`)
	amountTableCell = regexp.MustCompile(`(?is)<td[^>]*>\s*amount\s*:?\s*</td>\s*<td[^>]*>\s*(?:NGN|₦|N)?\s*&?n?b?s?p?;?\s*([\d,]+(?:\.\d{1,2})?)`)
	amountSameCell  = regexp.MustCompile(`(?is)<td[^>]*>\s*amount\s*:?\s*(?:NGN|₦|N)?\s*([\d,]+(?:\.\d{1,2})?)\s*</td>`)
	currencyLiteral = regexp.MustCompile(`(?i)(?:NGN|₦)\s*([\d,]+(?:\.\d{1,2})?)`)
)

// AmountStrategy extracts a monetary value from one representation of the
// email body. Strategies run in ranked order and the first plausible value
// wins.
type AmountStrategy struct {
	Name   string
	Source models.AmountSource
	apply  func(text, markup string) string
}

// amountStrategies are ordered most- to least-reliable. Explicit "Amount"
// labels always beat bare currency literals, which in turn only apply when
// no label is present anywhere in the message.
var amountStrategies = []AmountStrategy{
	{
		Name:   "amount_label_table",
		Source: models.AmountSourceLabel,
		apply: func(_, markup string) string {
			if m := amountTableCell.FindStringSubmatch(markup); m != nil {
				return m[1]
			}
			if m := amountSameCell.FindStringSubmatch(markup); m != nil {
				return m[1]
			}
			return ""
		},
	},
	{
		Name:   "amount_label_text",
		Source: models.AmountSourceLabel,
		apply: func(text, _ string) string {
			if m := amountLabelText.FindStringSubmatch(text); m != nil {
				return m[1]
			}
			return ""
		},
	},
	{
		Name:   "currency_literal",
		Source: models.AmountSourceCurrencyLiteral,
		apply: func(text, _ string) string {
			if m := currencyLiteral.FindStringSubmatch(text); m != nil {
				return m[1]
			}
			return ""
		},
	},
}

// ExtractAmount runs the ranked amount strategies over the canonical text
// and raw markup of an email. It returns the parsed amount, the source
// classification for audit, and the name of the winning strategy. A zero
// decimal with empty source means no strategy produced a plausible value.
func ExtractAmount(text, markup string) (decimal.Decimal, models.AmountSource, string) {
	for _, s := range amountStrategies {
		raw := s.apply(text, markup)
		if raw == "" {
			continue
		}
		raw = normalize.CleanEncodedArtifacts(raw)
		amount, err := models.ParseAmount(raw)
		if err != nil {
			continue
		}
		if amount.LessThan(minPlausibleAmount) {
			continue
		}
		return amount, s.Source, s.Name
	}
	return decimal.Zero, "", ""
}

// HasAmountLabel reports whether an explicit "Amount" label appears in
// either representation. Used to decide whether a description-blob amount
// should stand or yield.
func HasAmountLabel(text, markup string) bool {
	return amountLabelText.MatchString(text) ||
		amountTableCell.MatchString(markup) ||
		amountSameCell.MatchString(markup) ||
		strings.Contains(strings.ToLower(text), "amount")
}
