// Package banks holds per-bank notification templates. A template claims an
// email by fingerprint (sender domain plus subject or body markers) and
// then extracts fields with patterns written for that bank's exact layout.
// Claimed emails never fall back to generic extraction: a recognized bank
// whose required fields cannot be read is a hard failure, because silence
// there means the bank changed its template and every later email would
// fail the same way.
package banks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"email-payment-reconciler/internal/models"
)

// Template recognizes and parses one bank's notification format
type Template interface {
	// BankName returns the template's display name
	BankName() string

	// Matches reports whether this template claims the message
	Matches(msg *models.RawEmailMessage) bool

	// Parse extracts a transaction from a claimed message. Returns an
	// error when a required field is missing; callers must not fall back
	// to generic extraction on that error.
	Parse(msg *models.RawEmailMessage) (*models.ExtractedTransaction, error)
}

// Registry resolves messages to templates in registration order
type Registry struct {
	templates []Template
}

// NewRegistry creates a registry with the built-in bank templates
func NewRegistry() *Registry {
	return &Registry{
		templates: []Template{
			NewGTBankTemplate(),
			NewAccessBankTemplate(),
		},
	}
}

// Register appends a template. Earlier templates win when more than one
// claims a message.
func (r *Registry) Register(t Template) {
	r.templates = append(r.templates, t)
}

// Resolve returns the first template claiming the message, or nil when no
// registered bank recognizes it
func (r *Registry) Resolve(msg *models.RawEmailMessage) Template {
	for _, t := range r.templates {
		if t.Matches(msg) {
			return t
		}
	}
	return nil
}

// Fingerprint computes a stable identity for a parsed transaction from the
// fields that together identify one transfer: credited account, amount,
// value date, and narration. Two notifications of the same transfer hash
// identically even when delivered twice.
func Fingerprint(tx *models.ExtractedTransaction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s",
		tx.AccountNumber,
		tx.Amount.String(),
		tx.ValueDate.Format("2006-01-02"),
		strings.ToLower(strings.TrimSpace(tx.Narration)))
	return hex.EncodeToString(h.Sum(nil))
}

func senderDomain(from string) string {
	at := strings.LastIndex(from, "@")
	if at < 0 {
		return ""
	}
	domain := from[at+1:]
	domain = strings.TrimRight(domain, "> ")
	return strings.ToLower(domain)
}
