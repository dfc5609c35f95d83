package postgres

import (
	"context"
	"database/sql"
	"errors"

	"enkana/internal/domain"
	"enkana/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `
	id, customer_name, phone, total_amount, payment_status,
	checkout_request_id, merchant_request_id, mpesa_receipt_number,
	paid_at, created_at
`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.CustomerName,
		order.Phone,
		order.TotalAmount,
		order.PaymentStatus,
		nullString(order.CheckoutRequestID),
		nullString(order.MerchantRequestID),
		nullString(order.MpesaReceiptNumber),
		nullTime(order.PaidAt),
		order.CreatedAt,
	)

	return err
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	return r.scanOrder(r.q.QueryRowContext(ctx, query, id))
}

// GetAll retrieves all orders, newest first.
func (r *OrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// GetByCheckoutRequestID retrieves the order holding the given active
// checkout request ID.
func (r *OrderRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE checkout_request_id = $1`

	return r.scanOrder(r.q.QueryRowContext(ctx, query, checkoutRequestID))
}

// Update persists the mutable payment fields of an order.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET payment_status = $1,
		    checkout_request_id = $2,
		    merchant_request_id = $3,
		    mpesa_receipt_number = $4,
		    paid_at = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		order.PaymentStatus,
		nullString(order.CheckoutRequestID),
		nullString(order.MerchantRequestID),
		nullString(order.MpesaReceiptNumber),
		nullTime(order.PaidAt),
		order.ID,
	)
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

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepository) scanOrder(s scanner) (*domain.Order, error) {
	var order domain.Order
	var checkoutRequestID, merchantRequestID, receiptNumber sql.NullString
	var paidAt sql.NullTime

	err := s.Scan(
		&order.ID,
		&order.CustomerName,
		&order.Phone,
		&order.TotalAmount,
		&order.PaymentStatus,
		&checkoutRequestID,
		&merchantRequestID,
		&receiptNumber,
		&paidAt,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	order.CheckoutRequestID = checkoutRequestID.String
	order.MerchantRequestID = merchantRequestID.String
	order.MpesaReceiptNumber = receiptNumber.String
	order.PaidAt = paidAt.Time

	return &order, nil
}
