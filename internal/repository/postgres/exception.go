package postgres

import (
	"context"
	"database/sql"
	"errors"

	"enkana/internal/domain"
	"enkana/internal/repository"
)

// ExceptionRepository is a PostgreSQL implementation of repository.ExceptionRepository.
type ExceptionRepository struct {
	q Querier
}

// NewExceptionRepository creates a new PostgreSQL exception repository.
func NewExceptionRepository(db *sql.DB) *ExceptionRepository {
	return &ExceptionRepository{q: db}
}

// NewExceptionRepositoryWithTx creates an exception repository using a transaction.
func NewExceptionRepositoryWithTx(tx *sql.Tx) *ExceptionRepository {
	return &ExceptionRepository{q: tx}
}

const exceptionColumns = `
	id, mpesa_receipt_number, checkout_request_id, amount, phone_number,
	result_code, result_desc, reason, resolved, created_at
`

// Create appends a new exception to the ledger.
func (r *ExceptionRepository) Create(ctx context.Context, exception *domain.PaymentException) error {
	query := `
		INSERT INTO payment_exceptions (` + exceptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		exception.ID,
		nullString(exception.MpesaReceiptNumber),
		exception.CheckoutRequestID,
		exception.Amount,
		exception.PhoneNumber,
		exception.ResultCode,
		exception.ResultDesc,
		exception.Reason,
		exception.Resolved,
		exception.CreatedAt,
	)

	return err
}

// GetByID retrieves an exception by ID.
func (r *ExceptionRepository) GetByID(ctx context.Context, id string) (*domain.PaymentException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM payment_exceptions WHERE id = $1`

	exception, err := r.scanException(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return exception, nil
}

// ListUnresolved retrieves all exceptions awaiting operator review.
func (r *ExceptionRepository) ListUnresolved(ctx context.Context) ([]*domain.PaymentException, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM payment_exceptions
		WHERE resolved = false
		ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exceptions []*domain.PaymentException
	for rows.Next() {
		exception, err := r.scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exception)
	}

	return exceptions, rows.Err()
}

// MarkResolved flips the resolved flag. Resolving twice is a no-op.
func (r *ExceptionRepository) MarkResolved(ctx context.Context, id string) error {
	query := `UPDATE payment_exceptions SET resolved = true WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *ExceptionRepository) scanException(s scanner) (*domain.PaymentException, error) {
	var exception domain.PaymentException
	var receiptNumber sql.NullString

	err := s.Scan(
		&exception.ID,
		&receiptNumber,
		&exception.CheckoutRequestID,
		&exception.Amount,
		&exception.PhoneNumber,
		&exception.ResultCode,
		&exception.ResultDesc,
		&exception.Reason,
		&exception.Resolved,
		&exception.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	exception.MpesaReceiptNumber = receiptNumber.String

	return &exception, nil
}
