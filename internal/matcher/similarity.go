package matcher

import (
	"math"
	"strings"

	"email-payment-reconciler/internal/models"
)

// NameSimilarity scores how well an extracted sender name matches the
// expected payer name, as a percentage from 0 to 100.
//
// Token overlap drives the score: every token of the expected name that
// appears in the sender name, either as an equal token or contained inside
// one, counts as matched, and the score is the matched fraction of the
// expected tokens. Bank narrations truncate and reorder names freely, so
// "adebayo ogunlesi" against "OGUNLESI ADEBAYO K" still scores 100.
// Identical normalized strings short-circuit to 100.
func NameSimilarity(expected, sender string) float64 {
	expected = models.NormalizeName(expected)
	sender = models.NormalizeName(sender)

	if expected == "" || sender == "" {
		return 0
	}
	if expected == sender {
		return 100
	}

	expectedTokens := strings.Fields(expected)
	senderTokens := strings.Fields(sender)
	if len(expectedTokens) == 0 {
		return 0
	}

	matched := 0
	for _, want := range expectedTokens {
		if tokenPresent(want, senderTokens) {
			matched++
		}
	}

	return math.Round(float64(matched) / float64(len(expectedTokens)) * 100)
}

// tokenPresent reports whether want equals or is contained in any sender
// token. Containment absorbs the initials and suffixes banks append to
// names, at the cost of short tokens matching loosely.
func tokenPresent(want string, senderTokens []string) bool {
	for _, have := range senderTokens {
		if want == have {
			return true
		}
		if len(want) >= 3 && strings.Contains(have, want) {
			return true
		}
		if len(have) >= 3 && strings.Contains(want, have) {
			return true
		}
	}
	return false
}
