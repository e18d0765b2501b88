package matcher

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := NewMatcher(nil, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func pendingRequest(amount, payerName string, createdAt time.Time) *models.PendingPaymentRequest {
	return &models.PendingPaymentRequest{
		ID:            "req-1",
		TransactionID: "txn-1",
		Amount:        decimal.RequireFromString(amount),
		PayerName:     payerName,
		CreatedAt:     createdAt,
	}
}

func creditOf(amount, sender string) *models.ExtractedTransaction {
	return &models.ExtractedTransaction{
		Amount:     decimal.RequireFromString(amount),
		SenderName: sender,
		Type:       models.TransactionCredit,
	}
}

func TestMatchExactAmountNoPayerName(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "", created)
	tx := creditOf("5000", "")

	decision := newTestMatcher(t).Match(request, tx, created.Add(10*time.Minute), 0)
	if !decision.Matched {
		t.Fatalf("expected match, got reason %q", decision.Reason)
	}
	if decision.IsMismatch || decision.NameMismatch {
		t.Errorf("unexpected mismatch flags on exact match: %+v", decision)
	}
	if *decision.TimeDiffMinutes != 10 {
		t.Errorf("time diff = %d, want 10", *decision.TimeDiffMinutes)
	}
}

func TestMatchNameUnlocksTolerance(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "mary jane okafor", created)
	tx := creditOf("4500", "mary jane")

	decision := newTestMatcher(t).Match(request, tx, created.Add(30*time.Minute), 0)
	if !decision.Matched {
		t.Fatalf("expected match, got reason %q", decision.Reason)
	}
	if !decision.IsMismatch {
		t.Error("expected amount mismatch flag")
	}
	if decision.NameSimilarityPercent != 67 {
		t.Errorf("similarity = %d, want 67", decision.NameSimilarityPercent)
	}
	if !strings.Contains(decision.MismatchReason, "500 short of expected 5000") {
		t.Errorf("mismatch reason %q does not cite the 500 shortfall", decision.MismatchReason)
	}
}

func TestMatchRejectsEmailBeforeRequest(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "", created)
	tx := creditOf("5000", "")

	decision := newTestMatcher(t).Match(request, tx, created.Add(-15*time.Minute), 0)
	if decision.Matched {
		t.Fatal("matched an email received before the request existed")
	}
	if !strings.Contains(decision.Reason, "before request creation") {
		t.Errorf("reason %q does not cite arrival before creation", decision.Reason)
	}
	if *decision.TimeDiffMinutes >= 0 {
		t.Errorf("time diff = %d, want negative", *decision.TimeDiffMinutes)
	}
}

func TestMatchRejectsOutsideTimeWindow(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "", created)
	tx := creditOf("5000", "")

	decision := newTestMatcher(t).Match(request, tx, created.Add(121*time.Minute), 0)
	if decision.Matched {
		t.Fatal("matched outside the time window")
	}
	if !strings.Contains(decision.Reason, "outside 120 minute window") {
		t.Errorf("reason %q does not cite the window", decision.Reason)
	}
}

func TestMatchAmountTolerance(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("100", "", created)
	emailDate := created.Add(5 * time.Minute)
	m := newTestMatcher(t)

	if decision := m.Match(request, creditOf("100.01", ""), emailDate, 0); !decision.Matched {
		t.Errorf("0.01 difference rejected: %q", decision.Reason)
	}
	if decision := m.Match(request, creditOf("99.99", ""), emailDate, 0); !decision.Matched {
		t.Errorf("0.01 shortfall rejected: %q", decision.Reason)
	}
	if decision := m.Match(request, creditOf("100.02", ""), emailDate, 0); decision.Matched {
		t.Error("0.02 difference approved without name evidence")
	}
}

func TestMatchLargeMismatchCeiling(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("10000", "john smith", created)
	tx := creditOf("5000", "john smith")

	decision := newTestMatcher(t).Match(request, tx, created.Add(5*time.Minute), 0)
	if decision.Matched {
		t.Fatal("approved a shortfall at the ceiling")
	}
	if !strings.Contains(decision.Reason, "ceiling") {
		t.Errorf("reason %q does not cite the ceiling", decision.Reason)
	}

	// Just under the ceiling the name match still carries it, flagged.
	decision = newTestMatcher(t).Match(request, creditOf("5000.01", "john smith"), created.Add(5*time.Minute), 0)
	if !decision.Matched || !decision.IsMismatch {
		t.Errorf("shortfall under ceiling should approve flagged, got %+v", decision)
	}
}

func TestMatchOverpaymentApprovedFlagged(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "john smith", created)
	tx := creditOf("6000", "john smith")

	decision := newTestMatcher(t).Match(request, tx, created.Add(5*time.Minute), 0)
	if !decision.Matched || !decision.IsMismatch {
		t.Fatalf("expected flagged approval, got %+v", decision)
	}
	if !strings.Contains(decision.MismatchReason, "overpays") {
		t.Errorf("mismatch reason %q does not cite overpayment", decision.MismatchReason)
	}
}

func TestMatchExactAmountWithLowNameSimilarity(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("3000", "john smith", created)
	tx := creditOf("3000", "ngozi eze")
	m := newTestMatcher(t)

	decision := m.Match(request, tx, created.Add(5*time.Minute), 0)
	if !decision.Matched {
		t.Fatalf("exact amount with unambiguous request should match, got %q", decision.Reason)
	}
	if !decision.NameMismatch {
		t.Error("expected name mismatch flag")
	}

	// The same exact amount cannot claim the request when other pending
	// requests expect it too.
	decision = m.Match(request, tx, created.Add(5*time.Minute), 1)
	if decision.Matched {
		t.Fatal("approved an ambiguous amount with a foreign payer name")
	}
	if !strings.Contains(decision.Reason, "other pending requests") {
		t.Errorf("reason %q does not cite the ambiguity", decision.Reason)
	}
}

func TestMatchExpectedPayerButNoneExtracted(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "john smith", created)
	tx := creditOf("5000", "")

	decision := newTestMatcher(t).Match(request, tx, created.Add(5*time.Minute), 0)
	if decision.Matched {
		t.Fatal("matched without the payer name the request expects")
	}
	if !strings.Contains(decision.Reason, "none could be extracted") {
		t.Errorf("reason = %q", decision.Reason)
	}
}

func TestMatchRejectsBelowMinimumAndMissingAmount(t *testing.T) {
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "", created)
	m := newTestMatcher(t)

	decision := m.Match(request, creditOf("5", ""), created.Add(5*time.Minute), 0)
	if decision.Matched || !strings.Contains(decision.Reason, "below minimum") {
		t.Errorf("below-minimum amount: %+v", decision)
	}

	decision = m.Match(request, &models.ExtractedTransaction{}, created.Add(5*time.Minute), 0)
	if decision.Matched || !strings.Contains(decision.Reason, "no amount extracted") {
		t.Errorf("missing amount: %+v", decision)
	}
}

func TestStrictConfigRequiresExactAmount(t *testing.T) {
	m, err := NewMatcher(StrictMatchingConfig(), nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	created := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	request := pendingRequest("5000", "john smith", created)

	if decision := m.Match(request, creditOf("5000", "john smith"), created.Add(5*time.Minute), 0); !decision.Matched {
		t.Errorf("exact amount with exact name rejected under strict config: %q", decision.Reason)
	}
	if decision := m.Match(request, creditOf("4999", "john smith"), created.Add(5*time.Minute), 0); decision.Matched {
		t.Error("strict config approved a shortfall")
	}
}

func TestMatchingConfigValidate(t *testing.T) {
	bad := DefaultMatchingConfig()
	bad.TimeWindowMinutes = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero time window")
	}

	bad = DefaultMatchingConfig()
	bad.NameSimilarityThreshold = 150
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range threshold")
	}

	bad = DefaultMatchingConfig()
	bad.Timezone = "Not/AZone"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}

	if err := DefaultMatchingConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := StrictMatchingConfig().Validate(); err != nil {
		t.Errorf("strict config invalid: %v", err)
	}
}

func TestMatchingConfigLocation(t *testing.T) {
	if got := DefaultMatchingConfig().Location().String(); got != "Africa/Lagos" {
		t.Errorf("default location = %s, want Africa/Lagos", got)
	}

	bad := DefaultMatchingConfig()
	bad.Timezone = "Not/AZone"
	if bad.Location() != time.UTC {
		t.Error("unknown timezone must fall back to UTC")
	}
}
