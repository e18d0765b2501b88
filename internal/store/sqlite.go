package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"email-payment-reconciler/internal/models"
	pkgerrors "email-payment-reconciler/pkg/errors"
)

// SQLiteStore keeps payment requests in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

const requestSchema = `
CREATE TABLE IF NOT EXISTS payment_requests (
	id TEXT PRIMARY KEY,
	transaction_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	payer_name TEXT,
	account_number TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	approved_amount TEXT,
	approved_payer_name TEXT,
	approved_fingerprint TEXT,
	created_at TEXT NOT NULL,
	expires_at TEXT,
	approved_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_payment_requests_status ON payment_requests(status, created_at);
CREATE INDEX IF NOT EXISTS idx_payment_requests_approved ON payment_requests(status, approved_amount, approved_at);
CREATE INDEX IF NOT EXISTS idx_payment_requests_fingerprint ON payment_requests(status, approved_fingerprint, approved_at);
`

// NewSQLiteStore opens (creating if needed) the request database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "open request database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(requestSchema); err != nil {
		db.Close()
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "create request schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Insert adds a new pending request. Used by the seeding command and tests.
func (s *SQLiteStore) Insert(ctx context.Context, req *models.PendingPaymentRequest) error {
	if err := req.Validate(); err != nil {
		return pkgerrors.StorageError(pkgerrors.CodeUpdateFailed, "validate request", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_requests (id, transaction_id, amount, payer_name, account_number, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.TransactionID, req.Amount.String(), req.PayerName, req.AccountNumber,
		string(req.Status), req.CreatedAt.Format(time.RFC3339Nano), nullableTime(req.ExpiresAt))
	if err != nil {
		return pkgerrors.StorageError(pkgerrors.CodeUpdateFailed, "insert request", err)
	}
	return nil
}

// ListPending returns pending requests oldest first. Expiry is not
// filtered here: it must be judged against the email's receipt time, which
// only the caller knows, so stored emails re-processed later see the same
// candidate pool they saw on arrival.
func (s *SQLiteStore) ListPending(ctx context.Context, accountNumber string) ([]*models.PendingPaymentRequest, error) {
	query := `
		SELECT id, transaction_id, amount, payer_name, account_number, status, created_at, expires_at
		FROM payment_requests
		WHERE status = 'pending'`
	args := []interface{}{}
	if accountNumber != "" {
		query += ` AND account_number = ?`
		args = append(args, accountNumber)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "list pending requests", err)
	}
	defer rows.Close()

	var requests []*models.PendingPaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ApproveIfPending flips a request to approved only while it is still
// pending, recording what actually arrived: the received amount, the
// extracted payer name, the transaction fingerprint, and the settlement
// time. These columns are what later duplicate lookups run against.
func (s *SQLiteStore) ApproveIfPending(ctx context.Context, requestID string, approval Approval) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_requests
		SET status = 'approved',
		    approved_amount = ?,
		    approved_payer_name = ?,
		    approved_fingerprint = ?,
		    approved_at = ?
		WHERE id = ? AND status = 'pending'`,
		approval.Amount.String(), models.NormalizeName(approval.PayerName),
		approval.Fingerprint, approval.ApprovedAt.Format(time.RFC3339Nano), requestID)
	if err != nil {
		return false, pkgerrors.StorageError(pkgerrors.CodeUpdateFailed, "approve request", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, pkgerrors.StorageError(pkgerrors.CodeUpdateFailed, "approve request", err)
	}
	return affected == 1, nil
}

// FindApproved returns approved requests with the given amount and payer
// name settled at or after since
func (s *SQLiteStore) FindApproved(ctx context.Context, amount decimal.Decimal, payerName string, since time.Time) ([]*models.PendingPaymentRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, amount, payer_name, account_number, status, created_at, expires_at
		FROM payment_requests
		WHERE status = 'approved'
		  AND approved_amount = ?
		  AND approved_payer_name = ?
		  AND approved_at >= ?
		ORDER BY approved_at DESC`,
		amount.String(), models.NormalizeName(payerName), since.Format(time.RFC3339Nano))
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "find approved requests", err)
	}
	defer rows.Close()

	var requests []*models.PendingPaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// FindApprovedByFingerprint returns approved requests whose settling
// transaction carried the given fingerprint, settled at or after since
func (s *SQLiteStore) FindApprovedByFingerprint(ctx context.Context, fingerprint string, since time.Time) ([]*models.PendingPaymentRequest, error) {
	if fingerprint == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, amount, payer_name, account_number, status, created_at, expires_at
		FROM payment_requests
		WHERE status = 'approved'
		  AND approved_fingerprint = ?
		  AND approved_at >= ?
		ORDER BY approved_at DESC`,
		fingerprint, since.Format(time.RFC3339Nano))
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "find approved by fingerprint", err)
	}
	defer rows.Close()

	var requests []*models.PendingPaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Expire marks pending requests past their expiry as expired and returns
// how many changed
func (s *SQLiteStore) Expire(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_requests
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at < ?`,
		now.Format(time.RFC3339Nano))
	if err != nil {
		return 0, pkgerrors.StorageError(pkgerrors.CodeUpdateFailed, "expire requests", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRequest(rows *sql.Rows) (*models.PendingPaymentRequest, error) {
	var (
		req                  models.PendingPaymentRequest
		amount, status       string
		payerName, account   sql.NullString
		createdAt, expiresAt sql.NullString
	)
	if err := rows.Scan(&req.ID, &req.TransactionID, &amount, &payerName, &account, &status, &createdAt, &expiresAt); err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "scan request", err)
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, pkgerrors.StorageError(pkgerrors.CodeQueryFailed, "parse request amount", err)
	}
	req.Amount = parsed
	req.PayerName = payerName.String
	req.AccountNumber = account.String
	req.Status = models.RequestStatus(status)
	req.CreatedAt = parseTime(createdAt)
	req.ExpiresAt = parseTime(expiresAt)
	return &req, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
