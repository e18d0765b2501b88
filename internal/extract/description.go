package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DescriptionField is the decoded form of the fixed-width numeric code some
// Nigerian banks embed in transfer narrations. A full 43-digit code carries
// destination account, source account, amount in minor units, and value
// date; shorter runs carry progressively less.
type DescriptionField struct {
	// Blob is the raw digit run exactly as found, kept for audit
	Blob string

	// AccountNumber is the destination NUBAN (first 10 digits)
	AccountNumber string

	// PayerAccountNumber is the source account (next 10 digits), present
	// for runs of 30 digits and longer
	PayerAccountNumber string

	// Amount is the embedded value decoded from minor units. Advisory
	// only: an explicit amount label always wins over this field.
	Amount decimal.Decimal

	// ValueDate is the embedded YYYYMMDD date, zero when absent or invalid
	ValueDate time.Time
}

// HasAmount reports whether the blob carried a decodable amount
func (d *DescriptionField) HasAmount() bool {
	return d.Amount.IsPositive()
}

var (
	descriptionDirect = regexp.MustCompile(`(?i)description\s*:\s*(\d{20,})(?:\s|FROM|-|$)`)
	descriptionLine   = regexp.MustCompile(`(?i)description\s*:\s*([^\n\r]+)`)
	longDigitRun      = regexp.MustCompile(`\d{20,}`)
	fullBlobLayout    = regexp.MustCompile(`^(\d{10})(\d{10})(\d{6})(\d{8})(\d{9})$`)
)

// FindDescriptionBlob locates the digit run following a "description:"
// label. The direct form matches the run immediately after the colon; when
// other text intervenes, the longest qualifying run on the same logical
// line is taken instead. Returns "" when no run of at least 20 digits
// follows the label.
func FindDescriptionBlob(text string) string {
	if m := descriptionDirect.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := descriptionLine.FindStringSubmatch(text); m != nil {
		runs := longDigitRun.FindAllString(m[1], -1)
		longest := ""
		for _, r := range runs {
			if len(r) > len(longest) {
				longest = r
			}
		}
		return longest
	}
	return ""
}

// DecodeDescriptionBlob splits a digit run into its fixed-width fields.
//
// Layout by total length:
//
//	43 digits: [10 destination][10 source][6 amount minor units][8 value date YYYYMMDD][9 opaque]
//	42 digits: one trailing zero appended, then decoded as 43
//	30-41:     destination and source accounts only
//	20-29:     destination account only
//
// Runs shorter than 20 digits return nil: they are reference numbers, not
// description codes.
func DecodeDescriptionBlob(blob string) *DescriptionField {
	if len(blob) < 20 || !isAllDigits(blob) {
		return nil
	}

	field := &DescriptionField{Blob: blob}

	padded := blob
	if len(padded) == 42 {
		padded += "0"
	}

	switch {
	case len(padded) == 43:
		m := fullBlobLayout.FindStringSubmatch(padded)
		if m == nil {
			return nil
		}
		field.AccountNumber = m[1]
		field.PayerAccountNumber = m[2]
		field.Amount = decimal.RequireFromString(m[3]).Shift(-2)
		if d, err := time.Parse("20060102", m[4]); err == nil {
			field.ValueDate = d
		}
	case len(blob) >= 30:
		field.AccountNumber = blob[:10]
		field.PayerAccountNumber = blob[10:20]
	default:
		field.AccountNumber = blob[:10]
	}

	return field
}

// EncodeDescriptionBlob builds a 43-digit description code from its parts.
// The inverse of DecodeDescriptionBlob's full layout, used by synthetic
// fixtures. amountMinor is the value in kobo; opaque is right-padded with
// zeros to 9 digits.
func EncodeDescriptionBlob(destination, source string, amountMinor int64, valueDate time.Time, opaque string) (string, error) {
	if len(destination) != 10 || !isAllDigits(destination) {
		return "", fmt.Errorf("destination account must be exactly 10 digits, got %q", destination)
	}
	if len(source) != 10 || !isAllDigits(source) {
		return "", fmt.Errorf("source account must be exactly 10 digits, got %q", source)
	}
	if amountMinor < 0 || amountMinor > 999999 {
		return "", fmt.Errorf("amount in minor units must fit 6 digits, got %d", amountMinor)
	}
	if len(opaque) > 9 || (opaque != "" && !isAllDigits(opaque)) {
		return "", fmt.Errorf("opaque suffix must be at most 9 digits, got %q", opaque)
	}

	opaque += strings.Repeat("0", 9-len(opaque))
	return fmt.Sprintf("%s%s%06d%s%s",
		destination, source, amountMinor, valueDate.Format("20060102"), opaque), nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
