package extract

import (
	"regexp"
	"strings"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/normalize"
)

// Sender name extraction runs a ranked list of patterns against the email
// text and markup and returns the first candidate that survives the
// validity filter. Patterns earlier in the list are written for specific
// bank narration formats and are far more precise than the generic
// fallbacks at the end.

var honorifics = []string{
	"NT", "MR", "MRS", "MS", "DR", "PROF", "ENG", "CHIEF",
	"ALHAJI", "ALHAJA", "MALLAM", "MALAM",
}

var honorificPattern = regexp.MustCompile(
	`(?i)^(?:` + strings.Join(honorifics, "|") + `)\.?\s+`)

// senderStoplist rejects boilerplate phrases the generic patterns tend to
// capture from bank footers and disclaimers.
var senderStoplist = []string{
	"transaction notification", "dear customer", "dear valued",
	"customer care", "internet banking", "mobile app", "help desk",
	"do not reply", "no reply", "noreply", "confidential",
	"all rights reserved", "terms and conditions",
}

var (
	nameFromTransfer = regexp.MustCompile(`(?i)TRANSFER\s+FROM\s*:?\s*([A-Z][A-Z\s.'-]{2,60}?)(?:\s+TO\s|\s*[-|,\n]|$)`)
	nameFromTo       = regexp.MustCompile(`(?i)\bFROM\s+([A-Z][A-Z\s.'-]{2,60}?)\s+TO\s+[A-Z]`)
	nameCodeTrf      = regexp.MustCompile(`(?i)\b[A-Z0-9]{2,10}-([A-Z][A-Z\s.'-]{2,60}?)\s+(?:TRF\s+FOR|TRF|TRANSFER|FOR|TO)\b`)
	nameSimpleFrom   = regexp.MustCompile(`(?i)\bFROM\s*:\s*([A-Z][A-Z\s.'-]{2,60}?)(?:\s*[-|,\n]|$)`)
	nameRemarks      = regexp.MustCompile(`(?i)remarks?\s*:?\s*([A-Z][A-Z\s.'-]{2,60}?)(?:\s*[-|,\n]|$)`)
	nameTableCell    = regexp.MustCompile(`(?is)<td[^>]*>\s*(?:sender|payer|from|remarks?)\s*:?\s*</td>\s*<td[^>]*>\s*([^<]{3,60}?)\s*</td>`)
	nameGenericFrom  = regexp.MustCompile(`(?i)\bFROM\s+([A-Z][A-Z\s.'-]{2,60}?)(?:\s*[-|,\n.]|$)`)
	displayName      = regexp.MustCompile(`^\s*"?([^"<]{3,60}?)"?\s*<[^>]+>`)

	emailLike    = regexp.MustCompile(`@|https?://|www\.`)
	longDigitSeq = regexp.MustCompile(`\d{10,}`)
	initialsOnly = regexp.MustCompile(`^(?:[A-Za-z]\.?\s*){1,3}$`)
	hasLetter    = regexp.MustCompile(`[A-Za-z]`)
)

// NameStrategy pairs a pattern with the representation it reads and a name
// recorded in extraction diagnostics.
type NameStrategy struct {
	Name  string
	apply func(text, markup, fromHeader string) string
}

var nameStrategies = []NameStrategy{
	{"description_transfer_from", func(text, _, _ string) string {
		return firstGroup(nameFromTransfer, text)
	}},
	{"description_from_to", func(text, _, _ string) string {
		return firstGroup(nameFromTo, text)
	}},
	{"description_code_trf", func(text, _, _ string) string {
		return firstGroup(nameCodeTrf, text)
	}},
	{"simple_from_label", func(text, _, _ string) string {
		return firstGroup(nameSimpleFrom, text)
	}},
	{"remarks_field", func(text, _, _ string) string {
		return firstGroup(nameRemarks, text)
	}},
	{"html_table_cell", func(_, markup, _ string) string {
		return firstGroup(nameTableCell, markup)
	}},
	{"generic_from", func(text, _, _ string) string {
		return firstGroup(nameGenericFrom, text)
	}},
	{"sender_display_name", func(_, _, fromHeader string) string {
		return firstGroup(displayName, fromHeader)
	}},
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// ExtractSenderName runs the ranked name strategies and returns the first
// valid candidate, lower-cased and whitespace-collapsed, along with the
// winning strategy name. Returns ("", "") when no strategy yields a name
// that passes validation.
func ExtractSenderName(text, markup, fromHeader string) (string, string) {
	for _, s := range nameStrategies {
		raw := s.apply(text, markup, fromHeader)
		if raw == "" {
			continue
		}
		cleaned := CleanSenderName(raw)
		if !IsValidSenderName(cleaned) {
			continue
		}
		return models.NormalizeName(cleaned), s.Name
	}
	return "", ""
}

// CleanSenderName strips encoding artifacts, leading honorifics, and
// trailing punctuation from a raw candidate
func CleanSenderName(raw string) string {
	name := normalize.CleanEncodedArtifacts(raw)
	name = normalize.CollapseWhitespace(name)
	name = honorificPattern.ReplaceAllString(name, "")
	name = strings.Trim(name, " .,-|:")
	return name
}

// IsValidSenderName applies the filter that keeps boilerplate, addresses,
// and reference numbers from being mistaken for a payer name
func IsValidSenderName(name string) bool {
	if len(name) < 3 {
		return false
	}
	if !hasLetter.MatchString(name) {
		return false
	}
	if emailLike.MatchString(name) {
		return false
	}
	if longDigitSeq.MatchString(name) {
		return false
	}
	if isAllDigits(strings.ReplaceAll(name, " ", "")) {
		return false
	}
	if initialsOnly.MatchString(name) {
		return false
	}
	lower := strings.ToLower(name)
	for _, phrase := range senderStoplist {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
