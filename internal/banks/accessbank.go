package banks

import (
	"regexp"
	"strings"
	"time"

	"email-payment-reconciler/internal/extract"
	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/normalize"
	pkgerrors "email-payment-reconciler/pkg/errors"
)

// AccessBankTemplate parses Access Bank credit alerts. Access sends a
// mostly plain-text body where the transfer details, including the
// fixed-width description code, sit on a single narration line.
type AccessBankTemplate struct{}

// NewAccessBankTemplate creates the Access Bank template
func NewAccessBankTemplate() *AccessBankTemplate {
	return &AccessBankTemplate{}
}

const accessBankName = "Access Bank"

var (
	accessAmount    = regexp.MustCompile(`(?i)amount\s*:?\s*(?:NGN|₦|N)?\s*([\d,]+(?:\.\d{1,2})?)`)
	accessValueDate = regexp.MustCompile(`(?i)(?:value\s*date|date)\s*:?\s*(\d{1,2}[-/][A-Za-z]{3}[-/]\d{2,4}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)
	accessNarration = regexp.MustCompile(`(?i)(?:description|narration)\s*:?\s*([^\n\r]{1,300})`)
	debitMarker     = regexp.MustCompile(`(?i)\bdebit\b|\bDR\b`)
)

// BankName returns the template's display name
func (t *AccessBankTemplate) BankName() string { return accessBankName }

// Matches claims emails from the accessbankplc.com domain that look like
// transfer alerts
func (t *AccessBankTemplate) Matches(msg *models.RawEmailMessage) bool {
	domain := senderDomain(msg.From)
	if !strings.HasSuffix(domain, "accessbankplc.com") && !strings.HasSuffix(domain, "accessbank.com") {
		return false
	}
	body := strings.ToLower(msg.Subject + " " + msg.TextBody)
	return strings.Contains(body, "credit") || strings.Contains(body, "alert") ||
		strings.Contains(body, "transaction")
}

// Parse extracts fields from an Access Bank alert. Amount is required; the
// account number usually rides in the description code.
func (t *AccessBankTemplate) Parse(msg *models.RawEmailMessage) (*models.ExtractedTransaction, error) {
	text := normalize.Text(msg.TextBody)
	if text == "" {
		text = normalize.Text(msg.HTMLBody)
	}

	tx := &models.ExtractedTransaction{
		BankName:         accessBankName,
		ExtractionMethod: "accessbank_template",
		Diagnostics:      &models.ExtractionDiagnostics{},
	}

	m := accessAmount.FindStringSubmatch(text)
	if m == nil {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, accessBankName, "amount", nil)
	}
	amount, err := models.ParseAmount(m[1])
	if err != nil {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, accessBankName, "amount", err)
	}
	tx.Amount = amount
	tx.AmountSource = models.AmountSourceLabel

	if debitMarker.MatchString(text) && !strings.Contains(strings.ToLower(text), "credit") {
		tx.Type = models.TransactionDebit
	} else {
		tx.Type = models.TransactionCredit
	}

	if narration := firstMatch(accessNarration, text); narration != "" {
		tx.Narration = strings.TrimSpace(narration)
	}

	if blob := extract.FindDescriptionBlob(text); blob != "" {
		tx.DescriptionBlob = blob
		if field := extract.DecodeDescriptionBlob(blob); field != nil {
			tx.AccountNumber = field.AccountNumber
			tx.PayerAccountNumber = field.PayerAccountNumber
			if !field.ValueDate.IsZero() {
				tx.ValueDate = field.ValueDate
			}
		}
	}
	if tx.AccountNumber == "" {
		if account, strategy := extract.ExtractAccountNumber(text, "", nil); account != "" {
			tx.AccountNumber = account
			tx.Diagnostics.AddStep("account number via %s: %s", strategy, account)
		}
	}

	if tx.ValueDate.IsZero() {
		if rawDate := firstMatch(accessValueDate, text); rawDate != "" {
			if date, ok := parseBankDate(rawDate); ok {
				tx.ValueDate = date
			}
		}
	}
	if tx.ValueDate.IsZero() {
		tx.ValueDate = msg.ReceivedAt.Truncate(24 * time.Hour)
	}

	tx.TransactionTime = msg.ReceivedAt

	if name, strategy := extract.ExtractSenderName(text, normalize.Markup(msg.HTMLBody), msg.From); name != "" {
		tx.SenderName = name
		tx.Diagnostics.AddStep("sender name via %s: %s", strategy, name)
	}

	tx.Fingerprint = Fingerprint(tx)
	return tx, nil
}

func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

var bankDateLayouts = []string{
	"2-Jan-2006", "02-Jan-2006", "2-Jan-06", "02-Jan-06",
	"2/Jan/2006", "02/Jan/2006",
	"2-1-2006", "02-01-2006", "2/1/2006", "02/01/2006",
}

func parseBankDate(raw string) (time.Time, bool) {
	for _, layout := range bankDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
