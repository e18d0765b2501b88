package extract

import (
	"regexp"
)

var (
	accountLabelStrict  = regexp.MustCompile(`(?i)(?:account\s*(?:number|no\.?)?|acct)\s*:?\s*\*{0,6}(\d{10})\b`)
	accountLabelMasked  = regexp.MustCompile(`(?i)(?:account\s*(?:number|no\.?)?|acct)\s*:?\s*(\*{2,6}\d{4})`)
	accountTableCell    = regexp.MustCompile(`(?is)<td[^>]*>\s*account\s*(?:number|no\.?)?\s*:?\s*</td>\s*<td[^>]*>\s*\*{0,6}(\d{4,10})\s*</td>`)
	accountBareTenDigit = regexp.MustCompile(`\b(\d{10})\b`)
)

// ExtractAccountNumber locates the credited account in an email. A decoded
// description blob is authoritative when present; otherwise an explicit
// account label with a full 10-digit NUBAN is preferred, then an HTML table
// cell, then a masked label, then any bare 10-digit run as a last resort.
// Returns the account (possibly masked) and the strategy name.
func ExtractAccountNumber(text, markup string, blob *DescriptionField) (string, string) {
	if blob != nil && blob.AccountNumber != "" {
		return blob.AccountNumber, "description_blob"
	}
	if m := accountLabelStrict.FindStringSubmatch(text); m != nil {
		return m[1], "account_label"
	}
	if m := accountTableCell.FindStringSubmatch(markup); m != nil {
		return m[1], "html_table_cell"
	}
	if m := accountLabelMasked.FindStringSubmatch(text); m != nil {
		return m[1], "account_label_masked"
	}
	if m := accountBareTenDigit.FindStringSubmatch(text); m != nil {
		return m[1], "bare_ten_digit"
	}
	return "", ""
}

// nubanWeights are the CBN check-digit weights for the 9 serial digits of
// a NUBAN, applied after the 3-digit bank code.
var nubanWeights = [9]int{3, 7, 3, 3, 7, 3, 3, 7, 3}

// ValidNUBAN reports whether a 10-digit account number satisfies the CBN
// NUBAN check-digit scheme for the given 3-digit bank code. Used as an
// enrichment signal only: extraction never rejects an account on check
// digit alone because many notification templates mask or truncate it.
func ValidNUBAN(bankCode, account string) bool {
	if len(bankCode) != 3 || len(account) != 10 {
		return false
	}
	if !isAllDigits(bankCode) || !isAllDigits(account) {
		return false
	}
	sum := 0
	for i, w := range [3]int{3, 7, 3} {
		sum += int(bankCode[i]-'0') * w
	}
	for i, w := range nubanWeights {
		sum += int(account[i]-'0') * w
	}
	check := (10 - sum%10) % 10
	return check == int(account[9]-'0')
}
