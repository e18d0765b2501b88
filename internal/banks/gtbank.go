package banks

import (
	"regexp"
	"strings"

	"email-payment-reconciler/internal/extract"
	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/normalize"
	pkgerrors "email-payment-reconciler/pkg/errors"
)

// GTBankTemplate parses GTBank transaction notification emails. GTBank
// sends an HTML table with labeled rows; the account number arrives
// partially masked.
type GTBankTemplate struct{}

// NewGTBankTemplate creates the GTBank template
func NewGTBankTemplate() *GTBankTemplate {
	return &GTBankTemplate{}
}

const gtbankName = "GTBank"

var (
	gtbankAccount   = regexp.MustCompile(`(?i)account\s*number\s*:?\s*(\*{0,6}\d{3,10})`)
	gtbankAmount    = regexp.MustCompile(`(?i)amount\s*:?\s*(?:NGN|₦|N)?\s*([\d,]+(?:\.\d{1,2})?)\s*(CR|DR)?`)
	gtbankValueDate = regexp.MustCompile(`(?i)value\s*date\s*:?\s*(\d{1,2}[-/][A-Za-z]{3}[-/]\d{2,4}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)
	gtbankRemarks   = regexp.MustCompile(`(?i)remarks?\s*:?\s*([^\n\r]{1,300})`)
	gtbankDocNo     = regexp.MustCompile(`(?i)document\s*number\s*:?\s*(\S+)`)
	gtbankTime      = regexp.MustCompile(`(?i)time\s*(?:of\s*transaction)?\s*:?\s*(\d{1,2}:\d{2}(?::\d{2})?)`)
)

// BankName returns the template's display name
func (t *GTBankTemplate) BankName() string { return gtbankName }

// Matches claims emails from the gtbank.com domain whose subject or body
// carries the transaction notification marker
func (t *GTBankTemplate) Matches(msg *models.RawEmailMessage) bool {
	if !strings.HasSuffix(senderDomain(msg.From), "gtbank.com") {
		return false
	}
	subject := strings.ToLower(msg.Subject)
	if strings.Contains(subject, "transaction notification") {
		return true
	}
	body := strings.ToLower(msg.TextBody + msg.HTMLBody)
	return strings.Contains(body, "transaction notification")
}

// Parse extracts the labeled fields from a GTBank notification. Account,
// amount, and value date are required; their absence means the layout
// changed and is reported as a hard failure.
func (t *GTBankTemplate) Parse(msg *models.RawEmailMessage) (*models.ExtractedTransaction, error) {
	text := normalize.Text(msg.TextBody)
	if text == "" {
		text = normalize.Text(msg.HTMLBody)
	}

	tx := &models.ExtractedTransaction{
		BankName:         gtbankName,
		ExtractionMethod: "gtbank_template",
		Diagnostics:      &models.ExtractionDiagnostics{},
	}

	account := firstMatch(gtbankAccount, text)
	if account == "" {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, gtbankName, "account_number", nil)
	}
	tx.AccountNumber = account

	m := gtbankAmount.FindStringSubmatch(text)
	if m == nil {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, gtbankName, "amount", nil)
	}
	amount, err := models.ParseAmount(m[1])
	if err != nil {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, gtbankName, "amount", err)
	}
	tx.Amount = amount
	tx.AmountSource = models.AmountSourceLabel
	if len(m) > 2 && strings.EqualFold(m[2], "DR") {
		tx.Type = models.TransactionDebit
	} else {
		tx.Type = models.TransactionCredit
	}

	rawDate := firstMatch(gtbankValueDate, text)
	if rawDate == "" {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, gtbankName, "value_date", nil)
	}
	date, ok := parseBankDate(rawDate)
	if !ok {
		return nil, pkgerrors.TemplateError(pkgerrors.CodeMissingField, gtbankName, "value_date", nil).
			WithContext("raw_value", rawDate)
	}
	tx.ValueDate = date

	// Optional fields
	if remarks := firstMatch(gtbankRemarks, text); remarks != "" {
		tx.Narration = strings.TrimSpace(remarks)
		if blob := extract.FindDescriptionBlob("description: " + tx.Narration); blob != "" {
			tx.DescriptionBlob = blob
			if field := extract.DecodeDescriptionBlob(blob); field != nil && field.PayerAccountNumber != "" {
				tx.PayerAccountNumber = field.PayerAccountNumber
			}
		}
	}
	if docNo := firstMatch(gtbankDocNo, text); docNo != "" {
		tx.Diagnostics.AddStep("document number: %s", docNo)
	}
	if txTime := firstMatch(gtbankTime, text); txTime != "" {
		tx.Diagnostics.AddStep("time of transaction: %s", txTime)
	}
	tx.TransactionTime = msg.ReceivedAt

	if name, strategy := extract.ExtractSenderName(text, normalize.Markup(msg.HTMLBody), msg.From); name != "" {
		tx.SenderName = name
		tx.Diagnostics.AddStep("sender name via %s: %s", strategy, name)
	}

	tx.Fingerprint = Fingerprint(tx)
	return tx, nil
}
