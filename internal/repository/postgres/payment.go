package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"enkana/internal/domain"
	"enkana/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `
	id, order_id, mpesa_receipt_number, amount, phone_number,
	transaction_date, merchant_request_id, checkout_request_id,
	result_code, result_desc, created_at
`

// Create persists a new payment. The payments table carries a unique
// constraint on mpesa_receipt_number; a violation means the gateway
// redelivered a callback we already recorded.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.MpesaReceiptNumber,
		payment.Amount,
		payment.PhoneNumber,
		nullTime(payment.TransactionDate),
		payment.MerchantRequestID,
		payment.CheckoutRequestID,
		payment.ResultCode,
		payment.ResultDesc,
		payment.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicateTransaction
		}
		return err
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := r.scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// GetByReceiptNumber retrieves a payment by its M-Pesa receipt number.
// Returns nil if no payment exists for the receipt.
func (r *PaymentRepository) GetByReceiptNumber(ctx context.Context, receiptNumber string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE mpesa_receipt_number = $1`

	payment, err := r.scanPayment(r.q.QueryRowContext(ctx, query, receiptNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payment, nil
}

// GetByOrderID retrieves all payments recorded against an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *PaymentRepository) scanPayment(s scanner) (*domain.Payment, error) {
	var payment domain.Payment
	var transactionDate sql.NullTime

	err := s.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.MpesaReceiptNumber,
		&payment.Amount,
		&payment.PhoneNumber,
		&transactionDate,
		&payment.MerchantRequestID,
		&payment.CheckoutRequestID,
		&payment.ResultCode,
		&payment.ResultDesc,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.TransactionDate = transactionDate.Time

	return &payment, nil
}
