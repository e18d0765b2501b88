package errors

import (
	"fmt"
	"strings"
)

// ExtractionContext records where an extraction failure happened inside an
// email so the failure can be diagnosed without re-fetching the message
type ExtractionContext struct {
	Subject     string `json:"subject"`
	From        string `json:"from"`
	Method      string `json:"method,omitempty"`
	SearchTerm  string `json:"search_term,omitempty"`
	BodySnippet string `json:"body_snippet,omitempty"`
}

// ExtractionFailure extends the base error with the email context and the
// per-strategy steps that were attempted
type ExtractionFailure struct {
	*ReconcilerError
	Context     *ExtractionContext `json:"context"`
	Recoverable bool               `json:"recoverable"`
	Steps       []string           `json:"steps,omitempty"`
}

// Error implements the error interface with the email location appended
func (e *ExtractionFailure) Error() string {
	msg := e.ReconcilerError.Error()
	if e.Context != nil && e.Context.Subject != "" {
		msg += fmt.Sprintf(" in email %q from %s", e.Context.Subject, e.Context.From)
	}
	return msg
}

// GetDetailedError returns a multi-line description for operator review
func (e *ExtractionFailure) GetDetailedError() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))

	if e.Context != nil {
		lines = append(lines, fmt.Sprintf("  Subject: %s", e.Context.Subject))
		lines = append(lines, fmt.Sprintf("  From: %s", e.Context.From))
		if e.Context.Method != "" {
			lines = append(lines, fmt.Sprintf("  Method: %s", e.Context.Method))
		}
		if e.Context.SearchTerm != "" {
			lines = append(lines, fmt.Sprintf("  Search term: %s", e.Context.SearchTerm))
		}
		if e.Context.BodySnippet != "" {
			lines = append(lines, fmt.Sprintf("  Snippet: %s", e.Context.BodySnippet))
		}
	}

	if len(e.Steps) > 0 {
		lines = append(lines, "  Steps attempted:")
		for _, step := range e.Steps {
			lines = append(lines, fmt.Sprintf("    - %s", step))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  Suggestion: %s", e.Suggestion))
	}

	return strings.Join(lines, "\n")
}

// NewExtractionFailure creates an extraction failure with email context
func NewExtractionFailure(code ErrorCode, ctx *ExtractionContext, message string, cause error) *ExtractionFailure {
	var base *ReconcilerError
	if cause != nil {
		base = Wrap(cause, CategoryExtract, code, message)
	} else {
		base = New(CategoryExtract, code, message)
	}
	if ctx != nil {
		base.WithContext("subject", ctx.Subject).
			WithContext("from", ctx.From).
			WithContext("method", ctx.Method)
	}
	return &ExtractionFailure{
		ReconcilerError: base,
		Context:         ctx,
		Recoverable:     true,
	}
}

// WithSteps attaches the attempted strategy steps
func (e *ExtractionFailure) WithSteps(steps []string) *ExtractionFailure {
	e.Steps = steps
	return e
}
