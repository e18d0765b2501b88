package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func amountFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad test amount %q: %v", s, err)
	}
	return d
}

func TestFindDescriptionBlob(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "direct run after label",
			text:     "Description : 9008771210012345678901000020240815123456789",
			expected: "9008771210012345678901000020240815123456789",
		},
		{
			name:     "run followed by narration",
			text:     "description: 90087712100123456789 FROM SOLOMON INNOCENT AMITHY TO SQUAD",
			expected: "90087712100123456789",
		},
		{
			name:     "longest run on the line wins",
			text:     "Description: ref 12345 code 900877121001234567890123456789",
			expected: "900877121001234567890123456789",
		},
		{
			name:     "short runs ignored",
			text:     "Description: 1234567890123456789",
			expected: "",
		},
		{
			name:     "no label",
			text:     "9008771210012345678901000020240815123456789",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindDescriptionBlob(tt.text)
			if got != tt.expected {
				t.Errorf("FindDescriptionBlob(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestDecodeDescriptionBlob(t *testing.T) {
	t.Run("full 43 digit layout", func(t *testing.T) {
		// [dest 10][source 10][amount 6][date 8][opaque 9]
		blob := "9008771210" + "0123456789" + "150000" + "20240815" + "123456789"
		field := DecodeDescriptionBlob(blob)
		if field == nil {
			t.Fatal("expected decode, got nil")
		}
		if field.AccountNumber != "9008771210" {
			t.Errorf("AccountNumber = %q, want 9008771210", field.AccountNumber)
		}
		if field.PayerAccountNumber != "0123456789" {
			t.Errorf("PayerAccountNumber = %q, want 0123456789", field.PayerAccountNumber)
		}
		if !field.Amount.Equal(amountFromString(t, "1500.00")) {
			t.Errorf("Amount = %s, want 1500", field.Amount)
		}
		want := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
		if !field.ValueDate.Equal(want) {
			t.Errorf("ValueDate = %s, want %s", field.ValueDate, want)
		}
	})

	t.Run("42 digits pads trailing zero", func(t *testing.T) {
		blob := "9008771210" + "0123456789" + "150000" + "20240815" + "12345678"
		field := DecodeDescriptionBlob(blob)
		if field == nil {
			t.Fatal("expected decode, got nil")
		}
		if field.AccountNumber != "9008771210" || field.PayerAccountNumber != "0123456789" {
			t.Errorf("accounts = %q/%q", field.AccountNumber, field.PayerAccountNumber)
		}
		if !field.HasAmount() {
			t.Error("expected amount from padded blob")
		}
	})

	t.Run("30 to 41 digits yields accounts only", func(t *testing.T) {
		blob := "9008771210" + "0123456789" + "9999999999"
		field := DecodeDescriptionBlob(blob)
		if field == nil {
			t.Fatal("expected decode, got nil")
		}
		if field.AccountNumber != "9008771210" {
			t.Errorf("AccountNumber = %q", field.AccountNumber)
		}
		if field.PayerAccountNumber != "0123456789" {
			t.Errorf("PayerAccountNumber = %q", field.PayerAccountNumber)
		}
		if field.HasAmount() {
			t.Error("30-digit blob must not carry an amount")
		}
	})

	t.Run("20 to 29 digits yields destination only", func(t *testing.T) {
		field := DecodeDescriptionBlob("90087712100123456789")
		if field == nil {
			t.Fatal("expected decode, got nil")
		}
		if field.AccountNumber != "9008771210" {
			t.Errorf("AccountNumber = %q", field.AccountNumber)
		}
		if field.PayerAccountNumber != "" {
			t.Errorf("PayerAccountNumber = %q, want empty", field.PayerAccountNumber)
		}
	})

	t.Run("under 20 digits rejected", func(t *testing.T) {
		if field := DecodeDescriptionBlob("1234567890123456789"); field != nil {
			t.Errorf("expected nil for 19 digits, got %+v", field)
		}
	})

	t.Run("non numeric rejected", func(t *testing.T) {
		if field := DecodeDescriptionBlob("90087712100123456789FROM"); field != nil {
			t.Error("expected nil for mixed content")
		}
	})
}

func TestDescriptionBlobRoundTrip(t *testing.T) {
	dest := "9008771210"
	source := "0123456789"
	var amountMinor int64 = 450075
	valueDate := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)

	blob, err := EncodeDescriptionBlob(dest, source, amountMinor, valueDate, "31")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(blob) != 43 {
		t.Fatalf("encoded blob length = %d, want 43", len(blob))
	}

	field := DecodeDescriptionBlob(blob)
	if field == nil {
		t.Fatal("round-trip decode returned nil")
	}
	if field.AccountNumber != dest {
		t.Errorf("destination = %q, want %q", field.AccountNumber, dest)
	}
	if field.PayerAccountNumber != source {
		t.Errorf("source = %q, want %q", field.PayerAccountNumber, source)
	}
	if !field.Amount.Equal(amountFromString(t, "4500.75")) {
		t.Errorf("amount = %s, want 4500.75", field.Amount)
	}
	if !field.ValueDate.Equal(valueDate) {
		t.Errorf("value date = %s, want %s", field.ValueDate, valueDate)
	}
}

func TestEncodeDescriptionBlobValidation(t *testing.T) {
	valueDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	if _, err := EncodeDescriptionBlob("123", "0123456789", 100, valueDate, ""); err == nil {
		t.Error("expected error for short destination")
	}
	if _, err := EncodeDescriptionBlob("9008771210", "0123456789", 1000000, valueDate, ""); err == nil {
		t.Error("expected error for amount over 6 digits")
	}
	if _, err := EncodeDescriptionBlob("9008771210", "0123456789", 100, valueDate, "1234567890"); err == nil {
		t.Error("expected error for oversized opaque suffix")
	}
}
