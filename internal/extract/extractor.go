// Package extract turns normalized bank notification emails into structured
// transaction records.
//
// Extraction is strategy-driven: each field (amount, sender name, account
// number, value date) has an ordered list of patterns ranked from the most
// specific bank narration format down to generic fallbacks, and the first
// plausible hit wins. The orchestrator tries representations of the email
// in fidelity order, starting with the plain-text body and falling back to
// raw HTML markup and then HTML rendered to text, recording which
// representation and strategy produced each field so failed matches can be
// diagnosed from the audit trail alone.
package extract

import (
	"regexp"
	"strings"
	"time"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/normalize"
	"email-payment-reconciler/pkg/logger"
)

// Extractor derives an ExtractedTransaction from a raw email message
type Extractor struct {
	logger logger.Logger
}

// NewExtractor creates an extractor with the given logger
func NewExtractor(log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Extractor{logger: log.WithComponent("extract")}
}

var (
	valueDateLabel = regexp.MustCompile(`(?i)(?:value\s*date|date)\s*:?\s*(\d{1,2}[-/][A-Za-z]{3}[-/]\d{2,4}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{8})`)
	creditKeyword  = regexp.MustCompile(`(?i)\bcredit(?:ed)?\b|\bCR\b`)
	debitKeyword   = regexp.MustCompile(`(?i)\bdebit(?:ed)?\b|\bDR\b`)
	narrationLabel = regexp.MustCompile(`(?i)(?:narration|description|remarks?)\s*:?\s*([^\n\r]{3,200})`)
)

var valueDateLayouts = []string{
	"2-Jan-2006", "02-Jan-2006", "2-Jan-06", "02-Jan-06",
	"2/Jan/2006", "02/Jan/2006",
	"2-1-2006", "02-01-2006", "2/1/2006", "02/01/2006",
	"2006-01-02", "20060102",
}

// Extract pulls transaction fields from the message body. It never returns
// a nil transaction: callers inspect HasAmount and the populated fields to
// decide whether enough was recovered, and Diagnostics always records the
// path taken.
func (e *Extractor) Extract(msg *models.RawEmailMessage) *models.ExtractedTransaction {
	tx := &models.ExtractedTransaction{
		TransactionTime: msg.ReceivedAt,
		Diagnostics:     &models.ExtractionDiagnostics{},
	}

	text := normalize.Text(msg.TextBody)
	htmlText := normalize.Text(msg.HTMLBody)
	markup := normalize.Markup(msg.HTMLBody)

	diag := tx.Diagnostics
	diag.TextLength = len(text)
	diag.HTMLLength = len(msg.HTMLBody)
	diag.TextPreview = preview(text, 200)
	diag.HTMLPreview = preview(htmlText, 200)

	// Representations in fidelity order. The plain-text body is what the
	// bank wrote; rendered HTML may reorder table cells.
	type rep struct {
		name   string
		text   string
		markup string
	}
	reps := []rep{
		{"text_body", text, ""},
		{"html_body", htmlText, markup},
		{"html_rendered_text", htmlText + "\n" + text, markup},
	}

	for _, r := range reps {
		if r.text == "" && r.markup == "" {
			diag.AddStep("%s skipped: empty representation", r.name)
			continue
		}
		e.extractFrom(tx, r.text, r.markup, msg.From)
		if tx.HasAmount() && tx.SenderName != "" {
			tx.ExtractionMethod = r.name
			diag.AddStep("%s complete: amount and sender recovered", r.name)
			break
		}
		if tx.ExtractionMethod == "" && (tx.HasAmount() || tx.SenderName != "") {
			tx.ExtractionMethod = r.name
		}
		diag.AddStep("%s partial: amount=%v sender=%q", r.name, tx.HasAmount(), tx.SenderName)
	}

	if !tx.HasAmount() {
		diag.AddError("no strategy produced a plausible amount")
	}

	e.logger.WithFields(logger.Fields{
		"method":  tx.ExtractionMethod,
		"amount":  tx.Amount.String(),
		"sender":  tx.SenderName,
		"account": tx.AccountNumber,
	}).Debug("Extraction finished")

	return tx
}

// extractFrom fills any still-empty fields of tx from one representation.
// Fields already populated by a higher-fidelity representation are kept.
func (e *Extractor) extractFrom(tx *models.ExtractedTransaction, text, markup, fromHeader string) {
	diag := tx.Diagnostics

	if tx.DescriptionBlob == "" {
		if blob := FindDescriptionBlob(text); blob != "" {
			tx.DescriptionBlob = blob
			if field := DecodeDescriptionBlob(blob); field != nil {
				diag.AddStep("description blob decoded: %d digits", len(blob))
				if tx.AccountNumber == "" {
					tx.AccountNumber = field.AccountNumber
				}
				if tx.PayerAccountNumber == "" {
					tx.PayerAccountNumber = field.PayerAccountNumber
				}
				if tx.ValueDate.IsZero() {
					tx.ValueDate = field.ValueDate
				}
				// The embedded amount is advisory: an explicit label
				// anywhere in the message takes precedence.
				if !tx.HasAmount() && field.HasAmount() && !HasAmountLabel(text, markup) {
					tx.Amount = field.Amount
					tx.AmountSource = models.AmountSourceDescriptionBlob
				}
			}
		}
	}

	if !tx.HasAmount() || tx.AmountSource == models.AmountSourceDescriptionBlob {
		if amount, source, strategy := ExtractAmount(text, markup); source != "" {
			tx.Amount = amount
			tx.AmountSource = source
			diag.AddStep("amount via %s: %s", strategy, amount)
		}
	}

	if tx.SenderName == "" {
		if name, strategy := ExtractSenderName(text, markup, fromHeader); name != "" {
			tx.SenderName = name
			diag.AddStep("sender name via %s: %s", strategy, name)
		}
	}

	if tx.AccountNumber == "" {
		var blob *DescriptionField
		if tx.DescriptionBlob != "" {
			blob = DecodeDescriptionBlob(tx.DescriptionBlob)
		}
		if account, strategy := ExtractAccountNumber(text, markup, blob); account != "" {
			tx.AccountNumber = account
			diag.AddStep("account number via %s: %s", strategy, account)
		}
	}

	if tx.ValueDate.IsZero() {
		if m := valueDateLabel.FindStringSubmatch(text); m != nil {
			if d, ok := parseValueDate(m[1]); ok {
				tx.ValueDate = d
				diag.AddStep("value date via date label: %s", m[1])
			}
		}
	}

	if tx.Type == "" {
		tx.Type = DetectTransactionType(text)
	}

	if tx.Narration == "" {
		if m := narrationLabel.FindStringSubmatch(text); m != nil {
			tx.Narration = strings.TrimSpace(m[1])
		}
	}
}

// DetectTransactionType classifies a notification as credit or debit from
// keyword evidence. Credit wins ties because transfer alerts that mention
// both are almost always describing money arriving.
func DetectTransactionType(text string) models.TransactionType {
	credit := creditKeyword.MatchString(text)
	debit := debitKeyword.MatchString(text)
	switch {
	case credit:
		return models.TransactionCredit
	case debit:
		return models.TransactionDebit
	default:
		return ""
	}
}

func parseValueDate(raw string) (time.Time, bool) {
	for _, layout := range valueDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
