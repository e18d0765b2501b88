package extract

import (
	"testing"

	"email-payment-reconciler/internal/models"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		markup         string
		expectedAmount string
		expectedSource models.AmountSource
	}{
		{
			name:           "labeled amount with NGN",
			text:           "Amount : NGN 5,000.00",
			expectedAmount: "5000",
			expectedSource: models.AmountSourceLabel,
		},
		{
			name:           "labeled amount with naira sign",
			text:           "Amount: ₦12,500.50",
			expectedAmount: "12500.5",
			expectedSource: models.AmountSourceLabel,
		},
		{
			name:           "table cell pair",
			markup:         "<tr><td>Amount</td><td>NGN 7,250.00</td></tr>",
			expectedAmount: "7250",
			expectedSource: models.AmountSourceLabel,
		},
		{
			name:           "currency literal fallback",
			text:           "You have received NGN 3,000.00 from a customer",
			expectedAmount: "3000",
			expectedSource: models.AmountSourceCurrencyLiteral,
		},
		{
			name:           "label beats currency literal",
			text:           "NGN 999.00 fee notice. Amount : NGN 5,000.00",
			expectedAmount: "5000",
			expectedSource: models.AmountSourceLabel,
		},
		{
			name: "implausibly small value skipped",
			text: "Amount : 2",
		},
		{
			name: "no amount anywhere",
			text: "Dear customer, thank you for banking with us",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, source, _ := ExtractAmount(tt.text, tt.markup)
			if tt.expectedSource == "" {
				if source != "" {
					t.Errorf("expected no amount, got %s from %s", amount, source)
				}
				return
			}
			if source != tt.expectedSource {
				t.Errorf("source = %q, want %q", source, tt.expectedSource)
			}
			want := amountFromString(t, tt.expectedAmount)
			if !amount.Equal(want) {
				t.Errorf("amount = %s, want %s", amount, want)
			}
		})
	}
}

func TestParseAmountFormats(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"5,000.00", "5000"},
		{"₦1,234.56", "1234.56"},
		{"100", "100"},
	}
	for _, tt := range tests {
		got, err := models.ParseAmount(tt.input)
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", tt.input, err)
			continue
		}
		if !got.Equal(amountFromString(t, tt.expected)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}
