package banks

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
)

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()

	gtbank := &models.RawEmailMessage{
		From:    "GeNS <gens@gtbank.com>",
		Subject: "Transaction Notification",
	}
	if tpl := registry.Resolve(gtbank); tpl == nil || tpl.BankName() != "GTBank" {
		t.Errorf("expected GTBank template, got %v", tpl)
	}

	access := &models.RawEmailMessage{
		From:    "alerts@accessbankplc.com",
		Subject: "Credit Alert",
	}
	if tpl := registry.Resolve(access); tpl == nil || tpl.BankName() != "Access Bank" {
		t.Errorf("expected Access Bank template, got %v", tpl)
	}

	unknown := &models.RawEmailMessage{
		From:    "alerts@firstbank.example.com",
		Subject: "Credit Alert",
	}
	if tpl := registry.Resolve(unknown); tpl != nil {
		t.Errorf("expected no template for unknown bank, got %s", tpl.BankName())
	}
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"gens@gtbank.com", "gtbank.com"},
		{"GeNS <gens@GTBank.com>", "gtbank.com"},
		{"Alerts <alerts@accessbankplc.com> ", "accessbankplc.com"},
		{"no-at-sign", ""},
	}
	for _, tt := range tests {
		if got := senderDomain(tt.from); got != tt.want {
			t.Errorf("senderDomain(%q) = %q, want %q", tt.from, got, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	tx := func() *models.ExtractedTransaction {
		return &models.ExtractedTransaction{
			AccountNumber: "9008771210",
			Amount:        decimal.RequireFromString("4500.00"),
			ValueDate:     time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC),
			Narration:     "Transfer from Solomon",
		}
	}

	a, b := Fingerprint(tx()), Fingerprint(tx())
	if a != b {
		t.Errorf("identical transactions hash differently: %s vs %s", a, b)
	}

	// Narration comparison is case-insensitive
	upper := tx()
	upper.Narration = "TRANSFER FROM SOLOMON"
	if Fingerprint(upper) != a {
		t.Error("narration case changed the fingerprint")
	}

	changed := tx()
	changed.Amount = decimal.RequireFromString("4500.01")
	if Fingerprint(changed) == a {
		t.Error("amount change did not change the fingerprint")
	}
}
