package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndWrap(t *testing.T) {
	err := New(CategoryExtract, CodeNoAmount, "nothing parsed")
	assert.Equal(t, CategoryExtract, err.Category)
	assert.Equal(t, CodeNoAmount, err.Code)
	assert.Equal(t, "nothing parsed", err.Error())
	assert.NotEmpty(t, err.StackTrace)

	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, CategoryStorage, CodeUpdateFailed, "insert failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, stderrors.Is(wrapped, cause))

	assert.Nil(t, Wrap(nil, CategoryStorage, CodeUpdateFailed, "ignored"))
}

func TestErrorIncludesSuggestion(t *testing.T) {
	err := New(CategoryMatch, CodeAmountMismatch, "amounts differ").
		WithSuggestion("review the attempt record")
	assert.Contains(t, err.Error(), "amounts differ")
	assert.Contains(t, err.Error(), "suggestion: review the attempt record")
}

func TestWithContext(t *testing.T) {
	err := New(CategoryTemplate, CodeMissingField, "field gone").
		WithContext("bank", "GTBank").
		WithContext("field", "value_date")
	assert.Equal(t, "GTBank", err.Context["bank"])
	assert.Equal(t, "value_date", err.Context["field"])
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryNormalize, 2},
		{CategoryExtract, 2},
		{CategoryTemplate, 2},
		{CategoryMatch, 3},
		{CategoryDuplicate, 3},
		{CategoryConfiguration, 4},
		{CategoryStorage, 5},
		{CategoryAudit, 5},
		{CategoryInternal, 5},
		{ErrorCategory("unknown"), 1},
	}
	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "boom")
		assert.Equal(t, tt.want, err.GetExitCode(), "category %s", tt.category)
	}
}

func TestConstructors(t *testing.T) {
	tplErr := TemplateError(CodeMissingField, "GTBank", "value_date", nil)
	assert.Equal(t, CategoryTemplate, tplErr.Category)
	assert.Contains(t, tplErr.Message, "GTBank")
	assert.Contains(t, tplErr.Message, "value_date")

	extErr := ExtractionError(CodeNoAmount, "text_body", nil)
	assert.Equal(t, CategoryExtract, extErr.Category)
	assert.Equal(t, "text_body", extErr.Context["method"])

	stErr := StorageError(CodeQueryFailed, "list pending requests", stderrors.New("locked"))
	assert.Equal(t, CategoryStorage, stErr.Category)
	assert.Contains(t, stErr.Message, "list pending requests")
	assert.NotNil(t, stErr.Unwrap())

	cfgErr := ConfigurationError(CodeMissingConfig, "request_store", nil, nil)
	assert.Equal(t, CategoryConfiguration, cfgErr.Category)
	assert.Contains(t, cfgErr.Message, "request_store")

	dupErr := DuplicateError(CodeDuplicatePayment, "abc123", nil)
	assert.Equal(t, CategoryDuplicate, dupErr.Category)
	assert.Equal(t, "abc123", dupErr.Context["fingerprint"])

	mErr := MatchError(CodeAmbiguousMatch, "txn-1", nil)
	assert.Equal(t, CategoryMatch, mErr.Category)
	assert.Equal(t, "txn-1", mErr.Context["transaction_id"])
}

func TestAsReconcilerError(t *testing.T) {
	base := New(CategoryStorage, CodeQueryFailed, "query failed")
	wrapped := fmt.Errorf("outer layer: %w", base)

	found, ok := AsReconcilerError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeQueryFailed, found.Code)

	_, ok = AsReconcilerError(stderrors.New("plain"))
	assert.False(t, ok)

	assert.True(t, IsReconcilerError(base))
	assert.False(t, IsReconcilerError(wrapped))
}

func TestWrapIfNeeded(t *testing.T) {
	base := New(CategoryMatch, CodeOutsideWindow, "too late")
	assert.Same(t, base, WrapIfNeeded(base, CategoryInternal, CodeUnexpectedError, "ignored"))

	plain := stderrors.New("plain")
	wrapped := WrapIfNeeded(plain, CategoryStorage, CodeQueryFailed, "query failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, CategoryStorage, wrapped.Category)

	assert.Nil(t, WrapIfNeeded(nil, CategoryStorage, CodeQueryFailed, ""))
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryExtract, CodeNoAmount, "one"),
		New(CategoryExtract, CodeNoSenderName, "two"),
		New(CategoryStorage, CodeQueryFailed, "three"),
	}
	summary := NewErrorSummary(errs)

	assert.Equal(t, 3, summary.Total)
	assert.True(t, summary.HasCategory(CategoryExtract))
	assert.False(t, summary.HasCategory(CategoryMatch))
	assert.True(t, summary.HasCode(CodeQueryFailed))
	assert.Equal(t, 5, summary.GetExitCode())
	assert.Contains(t, summary.Error(), "3 errors occurred")

	empty := NewErrorSummary(nil)
	assert.Equal(t, 0, empty.GetExitCode())
	assert.Equal(t, "no errors", empty.Error())

	single := NewErrorSummary(errs[:1])
	assert.Equal(t, "one", single.Error())
}
