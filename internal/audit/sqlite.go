package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"email-payment-reconciler/internal/models"
	pkgerrors "email-payment-reconciler/pkg/errors"
)

// SQLiteSink persists attempt records to a local SQLite database. Rows are
// only ever inserted; nothing updates or deletes them.
type SQLiteSink struct {
	db *sql.DB
}

const attemptSchema = `
CREATE TABLE IF NOT EXISTS match_attempts (
	id TEXT PRIMARY KEY,
	request_id TEXT,
	transaction_id TEXT,
	result TEXT NOT NULL,
	reason TEXT NOT NULL,
	request_amount TEXT,
	request_payer_name TEXT,
	request_account TEXT,
	request_created_at TEXT,
	extracted_amount TEXT,
	extracted_name TEXT,
	extracted_account TEXT,
	email_subject TEXT,
	email_from TEXT,
	email_date TEXT,
	amount_diff TEXT,
	name_similarity_percent INTEGER,
	time_diff_minutes INTEGER,
	extraction_method TEXT,
	text_snippet TEXT,
	html_snippet TEXT,
	processing_time_ms REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_attempts_request ON match_attempts(request_id);
CREATE INDEX IF NOT EXISTS idx_match_attempts_result ON match_attempts(result, created_at);
`

// NewSQLiteSink opens (creating if needed) the attempt database at path
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "open attempt database", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY on concurrent appends
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(attemptSchema); err != nil {
		db.Close()
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "create attempt schema", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Append inserts one attempt record
func (s *SQLiteSink) Append(ctx context.Context, record *models.MatchAttemptRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_attempts (
			id, request_id, transaction_id, result, reason,
			request_amount, request_payer_name, request_account, request_created_at,
			extracted_amount, extracted_name, extracted_account,
			email_subject, email_from, email_date,
			amount_diff, name_similarity_percent, time_diff_minutes,
			extraction_method, text_snippet, html_snippet,
			processing_time_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, record.TransactionID, string(record.Result), record.Reason,
		decimalOrNull(record.RequestAmount), record.RequestPayerName, record.RequestAccount,
		timeOrNull(record.RequestCreatedAt),
		decimalOrNull(record.ExtractedAmount), record.ExtractedName, record.ExtractedAccount,
		record.EmailSubject, record.EmailFrom, timeOrNull(record.EmailDate),
		decimalOrNull(record.AmountDiff), intOrNull(record.NameSimilarityPercent), intOrNull(record.TimeDiffMinutes),
		record.ExtractionMethod, record.TextSnippet, record.HTMLSnippet,
		record.ProcessingTimeMS, record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return pkgerrors.StorageError(pkgerrors.CodeUpdateFailed, "append attempt record", err)
	}
	return nil
}

// Recent returns the most recent attempt records, newest first
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]*models.MatchAttemptRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, transaction_id, result, reason,
			request_amount, request_payer_name, request_account, request_created_at,
			extracted_amount, extracted_name, extracted_account,
			email_subject, email_from, email_date,
			amount_diff, name_similarity_percent, time_diff_minutes,
			extraction_method, text_snippet, html_snippet,
			processing_time_ms, created_at
		FROM match_attempts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "list attempt records", err)
	}
	defer rows.Close()

	var records []*models.MatchAttemptRecord
	for rows.Next() {
		record, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func scanAttempt(rows *sql.Rows) (*models.MatchAttemptRecord, error) {
	var (
		record                                       models.MatchAttemptRecord
		result                                       string
		requestAmount, extractedAmount, amountDiff   sql.NullString
		requestCreatedAt, emailDate, createdAt       sql.NullString
		nameSimilarity, timeDiff                     sql.NullInt64
	)
	err := rows.Scan(
		&record.ID, &record.RequestID, &record.TransactionID, &result, &record.Reason,
		&requestAmount, &record.RequestPayerName, &record.RequestAccount, &requestCreatedAt,
		&extractedAmount, &record.ExtractedName, &record.ExtractedAccount,
		&record.EmailSubject, &record.EmailFrom, &emailDate,
		&amountDiff, &nameSimilarity, &timeDiff,
		&record.ExtractionMethod, &record.TextSnippet, &record.HTMLSnippet,
		&record.ProcessingTimeMS, &createdAt,
	)
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "scan attempt record", err)
	}

	record.Result = models.MatchResult(result)
	record.RequestAmount = parseNullDecimal(requestAmount)
	record.ExtractedAmount = parseNullDecimal(extractedAmount)
	record.AmountDiff = parseNullDecimal(amountDiff)
	if nameSimilarity.Valid {
		v := int(nameSimilarity.Int64)
		record.NameSimilarityPercent = &v
	}
	if timeDiff.Valid {
		v := int(timeDiff.Int64)
		record.TimeDiffMinutes = &v
	}
	record.RequestCreatedAt = parseNullTime(requestCreatedAt)
	record.EmailDate = parseNullTime(emailDate)
	record.CreatedAt = parseNullTime(createdAt)
	return &record, nil
}

func decimalOrNull(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func intOrNull(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func parseNullTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ExportJSON writes all attempt records as a JSON array, for handing a
// dispute trail to support staff
func (s *SQLiteSink) ExportJSON(ctx context.Context, limit int) ([]byte, error) {
	records, err := s.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode attempt records: %w", err)
	}
	return out, nil
}
