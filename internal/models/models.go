package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus represents the lifecycle state of a payment request
type RequestStatus string

const (
	// StatusPending means the request is awaiting a matching bank alert
	StatusPending RequestStatus = "pending"
	// StatusApproved means a transaction was matched to the request
	StatusApproved RequestStatus = "approved"
	// StatusRejected means the request was administratively rejected
	StatusRejected RequestStatus = "rejected"
	// StatusExpired means the request timed out before any alert matched
	StatusExpired RequestStatus = "expired"
)

// String returns the string representation of RequestStatus
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid checks if the request status is a known state
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can no longer change.
// Requests move pending -> {approved, rejected, expired} exactly once.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// TransactionType represents the direction of a bank alert
type TransactionType string

const (
	// TransactionCredit represents money arriving in the monitored account
	TransactionCredit TransactionType = "CREDIT"
	// TransactionDebit represents money leaving the monitored account
	TransactionDebit TransactionType = "DEBIT"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// RawEmailMessage is an inbound bank notification email exactly as the
// ingestion collaborator delivered it. It is never mutated; all decoding
// happens on copies inside the normalizer.
type RawEmailMessage struct {
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	TextBody   string    `json:"text_body"`
	HTMLBody   string    `json:"html_body"`
	ReceivedAt time.Time `json:"received_at"`

	// AccountID optionally scopes the message to one monitored inbox
	AccountID string `json:"account_id,omitempty"`
}

// HasContent reports whether the message carries any body at all
func (m *RawEmailMessage) HasContent() bool {
	return strings.TrimSpace(m.TextBody) != "" || strings.TrimSpace(m.HTMLBody) != ""
}

// String returns a short representation suitable for logging
func (m *RawEmailMessage) String() string {
	return fmt.Sprintf("RawEmailMessage{From: %s, Subject: %q, ReceivedAt: %s}",
		m.From, m.Subject, m.ReceivedAt.Format(time.RFC3339))
}

// AmountSource identifies which extraction path produced the final amount
type AmountSource string

const (
	// AmountSourceLabel means an explicit "Amount : NGN ..." field was found
	AmountSourceLabel AmountSource = "amount_label"
	// AmountSourceDescriptionBlob means the amount came from the fixed-width
	// description code and should be treated as advisory
	AmountSourceDescriptionBlob AmountSource = "description_blob"
	// AmountSourceCurrencyLiteral means a bare currency-marked number matched
	AmountSourceCurrencyLiteral AmountSource = "currency_literal"
)

// ExtractedTransaction is the structured result of parsing one alert email.
// It is derived synchronously per message and never persisted on its own;
// the attempt log captures the fields it needs.
type ExtractedTransaction struct {
	// Amount is the transfer value in naira. Always positive when set.
	Amount decimal.Decimal `json:"amount"`

	// AmountSource records which strategy produced Amount
	AmountSource AmountSource `json:"amount_source,omitempty"`

	// SenderName is the payer name, lower-cased and whitespace-normalized
	SenderName string `json:"sender_name,omitempty"`

	// AccountNumber is the destination NUBAN (the monitored account)
	AccountNumber string `json:"account_number,omitempty"`

	// PayerAccountNumber is the source account, when the description blob
	// carried one
	PayerAccountNumber string `json:"payer_account_number,omitempty"`

	// ValueDate is the bank's value date for the transfer, zero when unknown
	ValueDate time.Time `json:"value_date,omitempty"`

	// TransactionTime is when the alert email was received
	TransactionTime time.Time `json:"transaction_time,omitempty"`

	// Type distinguishes credit alerts from debit alerts
	Type TransactionType `json:"type,omitempty"`

	// ExtractionMethod names the pipeline stage that produced this result:
	// template, text_body, html_table, html_text, html_rendered_text
	ExtractionMethod string `json:"extraction_method,omitempty"`

	// DescriptionBlob is the raw fixed-width digit run, kept for audit
	DescriptionBlob string `json:"description_blob,omitempty"`

	// Narration is the full description text, when one was found
	Narration string `json:"narration,omitempty"`

	// BankName is set when a bank template recognized the email
	BankName string `json:"bank_name,omitempty"`

	// Fingerprint is the deterministic transaction hash used for
	// re-ingestion suppression; only set for template decodes
	Fingerprint string `json:"fingerprint,omitempty"`

	// Diagnostics records the extraction steps and errors for forensics
	Diagnostics *ExtractionDiagnostics `json:"diagnostics,omitempty"`
}

// HasAmount reports whether an amount was recovered
func (t *ExtractedTransaction) HasAmount() bool {
	return t.Amount.IsPositive()
}

// Validate checks the extracted-transaction invariants
func (t *ExtractedTransaction) Validate() error {
	if !t.Amount.IsZero() && !t.Amount.IsPositive() {
		return fmt.Errorf("extracted amount must be positive, got %s", t.Amount)
	}
	if t.AccountNumber != "" && !digitsOnly.MatchString(t.AccountNumber) {
		return fmt.Errorf("account number must be numeric, got %q", t.AccountNumber)
	}
	return nil
}

// String returns a string representation of the ExtractedTransaction
func (t *ExtractedTransaction) String() string {
	return fmt.Sprintf("ExtractedTransaction{Amount: %s, Sender: %q, Account: %s, Method: %s}",
		t.Amount, t.SenderName, t.AccountNumber, t.ExtractionMethod)
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// ExtractionDiagnostics captures what the extractor tried and where it
// failed, so unmatched attempt records explain themselves.
type ExtractionDiagnostics struct {
	Steps       []string `json:"steps,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	TextLength  int      `json:"text_length"`
	HTMLLength  int      `json:"html_length"`
	TextPreview string   `json:"text_preview,omitempty"`
	HTMLPreview string   `json:"html_preview,omitempty"`
}

// AddStep appends a step description
func (d *ExtractionDiagnostics) AddStep(format string, args ...interface{}) {
	d.Steps = append(d.Steps, fmt.Sprintf(format, args...))
}

// AddError appends an error description
func (d *ExtractionDiagnostics) AddError(format string, args ...interface{}) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

// PendingPaymentRequest is a collection request awaiting a bank alert.
// Requests are created externally; this core only ever transitions them
// pending -> approved, and only through the store's conditional update.
type PendingPaymentRequest struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`

	// PayerName is the expected sender, empty when the requester did not
	// supply one. When empty only the amount gate applies.
	PayerName string `json:"payer_name,omitempty"`

	// AccountNumber is the pool account assigned to this request
	AccountNumber string `json:"account_number,omitempty"`

	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	Status    RequestStatus `json:"status"`
}

// Validate performs basic validation on the request
func (r *PendingPaymentRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("request ID cannot be empty")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("request amount must be positive, got %s", r.Amount)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid request status: %s", r.Status)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("request creation time cannot be zero")
	}
	return nil
}

// IsPending reports whether the request can still be matched
func (r *PendingPaymentRequest) IsPending() bool {
	return r.Status == StatusPending
}

// IsExpired reports whether the request passed its expiry at the given time
func (r *PendingPaymentRequest) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// NormalizedPayerName returns the expected payer name lower-cased with
// collapsed whitespace, the form the similarity function compares against
func (r *PendingPaymentRequest) NormalizedPayerName() string {
	return NormalizeName(r.PayerName)
}

// String returns a string representation of the request
func (r *PendingPaymentRequest) String() string {
	return fmt.Sprintf("PendingPaymentRequest{ID: %s, Amount: %s, Payer: %q, Status: %s}",
		r.ID, r.Amount, r.PayerName, r.Status)
}

// MatchDecision is the outcome of comparing one extracted transaction to
// one pending request. Reason is always populated, for matches and
// rejections alike.
type MatchDecision struct {
	Matched bool   `json:"matched"`
	Reason  string `json:"reason"`

	// AmountDiff is expected minus received: positive on a shortfall
	AmountDiff decimal.Decimal `json:"amount_diff"`

	// NameSimilarityPercent is the token-overlap score, 0 when no name
	// comparison happened
	NameSimilarityPercent int `json:"name_similarity_percent"`

	// TimeDiffMinutes is minutes between request creation and email
	// arrival; negative when the email predates the request. Nil when
	// either timestamp was missing.
	TimeDiffMinutes *int `json:"time_diff_minutes,omitempty"`

	// IsMismatch flags an approval whose amount differed beyond tolerance
	IsMismatch bool `json:"is_mismatch,omitempty"`

	// NameMismatch flags an approval carried by an exact amount despite a
	// below-threshold name similarity
	NameMismatch bool `json:"name_mismatch,omitempty"`

	// ReceivedAmount carries the actual transfer value on flagged
	// mismatches so revenue is booked at what arrived, not what was asked
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty"`

	// MismatchReason explains a flagged mismatch in words
	MismatchReason string `json:"mismatch_reason,omitempty"`
}

// String returns a short representation of the decision
func (d *MatchDecision) String() string {
	return fmt.Sprintf("MatchDecision{Matched: %t, Reason: %q}", d.Matched, d.Reason)
}

// MatchResult classifies the terminal outcome of one attempt
type MatchResult string

const (
	// ResultMatched means the transaction approved a request
	ResultMatched MatchResult = "matched"
	// ResultUnmatched means no pending request qualified
	ResultUnmatched MatchResult = "unmatched"
	// ResultDuplicate means the transaction re-stated an already-approved payment
	ResultDuplicate MatchResult = "duplicate"
)

// IsValid checks if the match result is a known value
func (r MatchResult) IsValid() bool {
	return r == ResultMatched || r == ResultUnmatched || r == ResultDuplicate
}

// MatchAttemptRecord is the append-only audit snapshot of one decision.
// Everything needed to reconstruct why a payment did or did not approve
// lives here; records are never updated or deleted.
type MatchAttemptRecord struct {
	ID            string      `json:"id"`
	RequestID     string      `json:"request_id,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Result        MatchResult `json:"result"`
	Reason        string      `json:"reason"`

	// Request-side context
	RequestAmount    *decimal.Decimal `json:"request_amount,omitempty"`
	RequestPayerName string           `json:"request_payer_name,omitempty"`
	RequestAccount   string           `json:"request_account,omitempty"`
	RequestCreatedAt time.Time        `json:"request_created_at,omitempty"`

	// Extracted-side context
	ExtractedAmount  *decimal.Decimal `json:"extracted_amount,omitempty"`
	ExtractedName    string           `json:"extracted_name,omitempty"`
	ExtractedAccount string           `json:"extracted_account,omitempty"`
	EmailSubject     string           `json:"email_subject,omitempty"`
	EmailFrom        string           `json:"email_from,omitempty"`
	EmailDate        time.Time        `json:"email_date,omitempty"`

	// Comparison metrics
	AmountDiff            *decimal.Decimal `json:"amount_diff,omitempty"`
	NameSimilarityPercent *int             `json:"name_similarity_percent,omitempty"`
	TimeDiffMinutes       *int             `json:"time_diff_minutes,omitempty"`

	ExtractionMethod string `json:"extraction_method,omitempty"`

	// Truncated, UTF-8 sanitized body excerpts for forensics
	TextSnippet string `json:"text_snippet,omitempty"`
	HTMLSnippet string `json:"html_snippet,omitempty"`

	ProcessingTimeMS float64   `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate performs basic validation on the attempt record
func (a *MatchAttemptRecord) Validate() error {
	if !a.Result.IsValid() {
		return fmt.Errorf("invalid match result: %s", a.Result)
	}
	if strings.TrimSpace(a.Reason) == "" {
		return fmt.Errorf("attempt reason cannot be empty")
	}
	return nil
}

// Utility functions shared across the extraction and matching packages

// NormalizeName lower-cases a name and collapses internal whitespace,
// producing the canonical form both sides of every comparison use.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// ParseAmount parses a money value from a string that may carry thousand
// separators or a currency symbol.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "₦")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format %q: %w", s, err)
	}

	return d, nil
}

// AmountsEqualWithin reports whether two amounts differ by at most tolerance
func AmountsEqualWithin(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
