package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ADEBAYO OGUNLESI", "adebayo ogunlesi"},
		{"  Solomon   Innocent  ", "solomon innocent"},
		{"john\tsmith", "john smith"},
		{"", ""},
		{"   ", ""},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.expected {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"plain", "4500", "4500", false},
		{"decimal places", "4500.50", "4500.50", false},
		{"thousand separators", "1,250,000.00", "1250000.00", false},
		{"naira symbol", "₦15000", "15000", false},
		{"symbol and separators", "₦1,500.25", "1500.25", false},
		{"surrounding space", "  300.00  ", "300.00", false},
		{"empty", "", "", true},
		{"not a number", "NGN", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %s, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAmountsEqualWithin(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	tests := []struct {
		a, b  string
		equal bool
	}{
		{"100", "100", true},
		{"100", "100.01", true},
		{"100.01", "100", true},
		{"100", "100.02", false},
		{"100", "99.98", false},
	}
	for _, tt := range tests {
		a := decimal.RequireFromString(tt.a)
		b := decimal.RequireFromString(tt.b)
		if got := AmountsEqualWithin(a, b, tolerance); got != tt.equal {
			t.Errorf("AmountsEqualWithin(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.equal)
		}
	}
}

func TestRequestStatus(t *testing.T) {
	for _, s := range []RequestStatus{StatusPending, StatusApproved, StatusRejected, StatusExpired} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if RequestStatus("settled").IsValid() {
		t.Error("unknown status reported valid")
	}

	if StatusPending.IsTerminal() {
		t.Error("pending is not terminal")
	}
	for _, s := range []RequestStatus{StatusApproved, StatusRejected, StatusExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestPendingPaymentRequestValidate(t *testing.T) {
	valid := PendingPaymentRequest{
		ID:        "req-1",
		Amount:    decimal.NewFromInt(5000),
		Status:    StatusPending,
		CreatedAt: time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *PendingPaymentRequest)
	}{
		{"empty ID", func(r *PendingPaymentRequest) { r.ID = " " }},
		{"zero amount", func(r *PendingPaymentRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *PendingPaymentRequest) { r.Amount = decimal.NewFromInt(-1) }},
		{"unknown status", func(r *PendingPaymentRequest) { r.Status = "settled" }},
		{"zero creation time", func(r *PendingPaymentRequest) { r.CreatedAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPendingPaymentRequestIsExpired(t *testing.T) {
	now := time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)

	r := PendingPaymentRequest{ExpiresAt: now.Add(-time.Minute)}
	if !r.IsExpired(now) {
		t.Error("past expiry should report expired")
	}

	r.ExpiresAt = now.Add(time.Minute)
	if r.IsExpired(now) {
		t.Error("future expiry should not report expired")
	}

	// A zero expiry means the request never times out
	r.ExpiresAt = time.Time{}
	if r.IsExpired(now) {
		t.Error("zero expiry should never report expired")
	}
}

func TestExtractedTransactionValidate(t *testing.T) {
	tx := ExtractedTransaction{
		Amount:        decimal.NewFromInt(4500),
		AccountNumber: "9008771210",
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}
	if !tx.HasAmount() {
		t.Error("positive amount should report HasAmount")
	}

	tx.Amount = decimal.NewFromInt(-5)
	if err := tx.Validate(); err == nil {
		t.Error("negative amount should fail validation")
	}
	if tx.HasAmount() {
		t.Error("negative amount should not report HasAmount")
	}

	tx.Amount = decimal.NewFromInt(4500)
	tx.AccountNumber = "90087x1210"
	if err := tx.Validate(); err == nil {
		t.Error("non-numeric account should fail validation")
	}
}

func TestMatchAttemptRecordValidate(t *testing.T) {
	record := MatchAttemptRecord{Result: ResultMatched, Reason: "amounts equal"}
	if err := record.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	record.Result = "settled"
	if err := record.Validate(); err == nil {
		t.Error("unknown result should fail validation")
	}

	record.Result = ResultUnmatched
	record.Reason = "  "
	if err := record.Validate(); err == nil {
		t.Error("blank reason should fail validation")
	}
}

func TestMatchResultIsValid(t *testing.T) {
	for _, r := range []MatchResult{ResultMatched, ResultUnmatched, ResultDuplicate} {
		if !r.IsValid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if MatchResult("pending").IsValid() {
		t.Error("unknown result reported valid")
	}
}

func TestRawEmailMessageHasContent(t *testing.T) {
	msg := RawEmailMessage{}
	if msg.HasContent() {
		t.Error("empty message reported content")
	}
	msg.TextBody = "  \n "
	if msg.HasContent() {
		t.Error("whitespace-only body reported content")
	}
	msg.HTMLBody = "<p>credited</p>"
	if !msg.HasContent() {
		t.Error("HTML body should count as content")
	}
}
