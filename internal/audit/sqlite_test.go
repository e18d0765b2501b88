package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "attempts.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSink: %v", err)
	}
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestSQLiteSinkAppendAndRecent(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("4500.00")
	similarity := 100
	first := &models.MatchAttemptRecord{
		ID:                    "attempt-1",
		RequestID:             "req-1",
		Result:                models.ResultUnmatched,
		Reason:                "no pending request for amount",
		ExtractedAmount:       &amount,
		NameSimilarityPercent: &similarity,
		EmailSubject:          "Credit Alert",
		CreatedAt:             time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC),
	}
	second := &models.MatchAttemptRecord{
		ID:        "attempt-2",
		Result:    models.ResultMatched,
		Reason:    "exact amount 4500.00 matched",
		CreatedAt: time.Date(2024, 8, 15, 11, 0, 0, 0, time.UTC),
	}

	if err := sink.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := sink.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "attempt-2" {
		t.Errorf("newest record first: got %s", records[0].ID)
	}

	got := records[1]
	if got.ExtractedAmount == nil || !got.ExtractedAmount.Equal(amount) {
		t.Errorf("extracted amount = %v, want 4500.00", got.ExtractedAmount)
	}
	if got.NameSimilarityPercent == nil || *got.NameSimilarityPercent != 100 {
		t.Errorf("similarity = %v", got.NameSimilarityPercent)
	}
	if got.RequestAmount != nil {
		t.Error("absent request amount should scan as nil")
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created at = %s, want %s", got.CreatedAt, first.CreatedAt)
	}
}

func TestSQLiteSinkExportJSON(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	if err := sink.Append(ctx, &models.MatchAttemptRecord{
		ID:        "attempt-1",
		Result:    models.ResultDuplicate,
		Reason:    "payment already approved within the window",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	out, err := sink.ExportJSON(ctx, 0)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var decoded []*models.MatchAttemptRecord
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Result != models.ResultDuplicate {
		t.Errorf("decoded %+v", decoded)
	}
}
