package audit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/models"
)

func TestRecorderRecord(t *testing.T) {
	sink := NewMemorySink()
	recorder := NewRecorder(sink, nil)

	received := time.Date(2024, 8, 15, 10, 30, 0, 0, time.UTC)
	timeDiff := 12
	attempt := &Attempt{
		Message: &models.RawEmailMessage{
			Subject:    "Credit Alert",
			From:       "alerts@accessbankplc.com",
			TextBody:   "Amount : NGN4,500.00 from SOLOMON INNOCENT",
			ReceivedAt: received,
		},
		Transaction: &models.ExtractedTransaction{
			Amount:           decimal.RequireFromString("4500.00"),
			SenderName:       "solomon innocent",
			AccountNumber:    "9008771210",
			ExtractionMethod: "text_body",
		},
		Request: &models.PendingPaymentRequest{
			ID:            "req-1",
			TransactionID: "txn-1",
			Amount:        decimal.RequireFromString("4500.00"),
			PayerName:     "solomon innocent",
			CreatedAt:     received.Add(-12 * time.Minute),
		},
		Decision: &models.MatchDecision{
			Matched:               true,
			Reason:                "payer name matched (100%) with exact amount 4500.00",
			NameSimilarityPercent: 100,
			TimeDiffMinutes:       &timeDiff,
		},
		Result:     models.ResultMatched,
		Reason:     "payer name matched (100%) with exact amount 4500.00",
		SearchTerm: "4,500.00",
		StartedAt:  time.Now().Add(-5 * time.Millisecond),
	}

	record, err := recorder.Record(context.Background(), attempt)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.ID == "" {
		t.Error("record has no ID")
	}
	if record.Result != models.ResultMatched {
		t.Errorf("result = %q", record.Result)
	}
	if record.RequestID != "req-1" || record.TransactionID != "txn-1" {
		t.Errorf("request linkage missing: %+v", record)
	}
	if record.ExtractedAmount == nil || !record.ExtractedAmount.Equal(decimal.RequireFromString("4500.00")) {
		t.Errorf("extracted amount = %v", record.ExtractedAmount)
	}
	if record.NameSimilarityPercent == nil || *record.NameSimilarityPercent != 100 {
		t.Errorf("similarity = %v", record.NameSimilarityPercent)
	}
	if record.TimeDiffMinutes == nil || *record.TimeDiffMinutes != 12 {
		t.Errorf("time diff = %v", record.TimeDiffMinutes)
	}
	if record.TextSnippet == "" {
		t.Error("text snippet missing")
	}
	if record.ProcessingTimeMS <= 0 {
		t.Errorf("processing time = %v", record.ProcessingTimeMS)
	}

	stored := sink.Records()
	if len(stored) != 1 || stored[0].ID != record.ID {
		t.Errorf("sink holds %d records", len(stored))
	}
}

func TestRecorderSparseAttempt(t *testing.T) {
	recorder := NewRecorder(NewMemorySink(), nil)

	record, err := recorder.Record(context.Background(), &Attempt{
		Message: &models.RawEmailMessage{Subject: "Unreadable"},
		Result:  models.ResultUnmatched,
		Reason:  "no amount extracted from email",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.ExtractedAmount != nil || record.RequestAmount != nil {
		t.Error("sparse attempt should leave optional amounts nil")
	}
	if record.Reason != "no amount extracted from email" {
		t.Errorf("reason = %q", record.Reason)
	}
}

func TestRecorderNilSink(t *testing.T) {
	recorder := NewRecorder(nil, nil)
	record, err := recorder.Record(context.Background(), &Attempt{
		Result: models.ResultUnmatched,
		Reason: "nothing pending",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record == nil || record.ID == "" {
		t.Error("record should still be built without a sink")
	}
}
