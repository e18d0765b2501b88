package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryNormalize     ErrorCategory = "normalize"
	CategoryExtract       ErrorCategory = "extract"
	CategoryTemplate      ErrorCategory = "template"
	CategoryMatch         ErrorCategory = "match"
	CategoryDuplicate     ErrorCategory = "duplicate"
	CategoryAudit         ErrorCategory = "audit"
	CategoryStorage       ErrorCategory = "storage"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Normalize errors
	CodeEmptyBody     ErrorCode = "empty_body"
	CodeEncodingError ErrorCode = "encoding_error"

	// Extract errors
	CodeNoAmount       ErrorCode = "no_amount"
	CodeNoSenderName   ErrorCode = "no_sender_name"
	CodeInvalidBlob    ErrorCode = "invalid_blob"
	CodeImplausibleTx  ErrorCode = "implausible_transaction"

	// Template errors
	CodeMissingField     ErrorCode = "missing_field"
	CodeUnrecognizedBank ErrorCode = "unrecognized_bank"

	// Match errors
	CodeOutsideWindow   ErrorCode = "outside_window"
	CodeAmountMismatch  ErrorCode = "amount_mismatch"
	CodeNameMismatch    ErrorCode = "name_mismatch"
	CodeAmbiguousMatch  ErrorCode = "ambiguous_match"
	CodeNoPendingFound  ErrorCode = "no_pending_found"

	// Duplicate errors
	CodeDuplicatePayment ErrorCode = "duplicate_payment"
	CodeDuplicateCheck   ErrorCode = "duplicate_check_failed"

	// Audit errors
	CodeAttemptLogFailed ErrorCode = "attempt_log_failed"

	// Storage errors
	CodeQueryFailed  ErrorCode = "query_failed"
	CodeUpdateFailed ErrorCode = "update_failed"
	CodeStoreClosed  ErrorCode = "store_closed"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryNormalize, CategoryExtract, CategoryTemplate:
		return 2
	case CategoryMatch, CategoryDuplicate:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryAudit, CategoryStorage, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// ExtractionError creates an extraction-related error
func ExtractionError(code ErrorCode, method string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeNoAmount:
		message = "no plausible amount could be extracted from the email"
		suggestion = "inspect the stored body previews to see which format the bank used"
	case CodeNoSenderName:
		message = "no valid sender name could be extracted from the email"
		suggestion = "check whether the narration format matches a known pattern"
	case CodeInvalidBlob:
		message = "description code could not be decoded"
		suggestion = "verify the digit run length matches a known layout"
	case CodeImplausibleTx:
		message = "extracted transaction failed plausibility checks"
		suggestion = "review the extraction diagnostics for the rejected fields"
	default:
		message = "extraction failed"
		suggestion = "review the extraction diagnostics"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryExtract, code, message)
	} else {
		result = New(CategoryExtract, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("method", method)
}

// TemplateError creates a bank-template error. Recognized banks with a
// broken required field are hard failures and never fall back to generic
// extraction.
func TemplateError(code ErrorCode, bank string, field string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("%s template missing required field '%s'", bank, field)
		suggestion = "the bank may have changed its notification layout; update the template"
	case CodeUnrecognizedBank:
		message = "email does not match any registered bank template"
		suggestion = "generic extraction will be used instead"
	default:
		message = fmt.Sprintf("template error for bank %s", bank)
		suggestion = "check the template patterns against a recent notification"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryTemplate, code, message)
	} else {
		result = New(CategoryTemplate, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("bank", bank).
		WithContext("field", field)
}

// MatchError creates a matching-related error
func MatchError(code ErrorCode, transactionID string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeOutsideWindow:
		message = "email received outside the matching time window"
		suggestion = "check whether the request expired before the transfer arrived"
	case CodeAmountMismatch:
		message = "received amount does not match any pending request"
		suggestion = "review the attempt record for the amount difference"
	case CodeNameMismatch:
		message = "payer name did not meet the similarity threshold"
		suggestion = "compare the extracted sender name against the expected payer"
	case CodeAmbiguousMatch:
		message = "multiple pending requests share the received amount"
		suggestion = "a name match is required to disambiguate; review pending requests"
	case CodeNoPendingFound:
		message = "no pending request found for the transaction"
		suggestion = "the transfer may be unsolicited or the request already resolved"
	default:
		message = "matching failed"
		suggestion = "review the attempt record"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryMatch, code, message)
	} else {
		result = New(CategoryMatch, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("transaction_id", transactionID)
}

// DuplicateError creates a duplicate-detection error
func DuplicateError(code ErrorCode, fingerprint string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeDuplicatePayment:
		message = "payment already approved for the same amount and payer"
		suggestion = "no action needed; the earlier approval stands"
	case CodeDuplicateCheck:
		message = "duplicate check could not be completed"
		suggestion = "processing continued without the check; verify manually if needed"
	default:
		message = "duplicate detection error"
		suggestion = "review recent approved payments"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryDuplicate, code, message)
	} else {
		result = New(CategoryDuplicate, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("fingerprint", fingerprint)
}

// StorageError creates a storage-related error
func StorageError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeQueryFailed:
		message = fmt.Sprintf("query failed during %s", operation)
		suggestion = "check database availability and schema"
	case CodeUpdateFailed:
		message = fmt.Sprintf("update failed during %s", operation)
		suggestion = "check for concurrent modification and retry"
	case CodeStoreClosed:
		message = fmt.Sprintf("store already closed during %s", operation)
		suggestion = "ensure the store outlives all processing"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check database availability"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	suggestion := "this is likely a bug; report it with the error details"

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconcilerError    `json:"errors"`
	SampleErrors []*ReconcilerError    `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if len(errs) == 0 {
		summary.Errors = []*ReconcilerError{}
		return summary
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}
	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}
	if es.Total == 1 {
		return es.Errors[0].Error()
	}
	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}
	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
