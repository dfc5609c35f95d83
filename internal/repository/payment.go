package repository

import (
	"context"

	"enkana/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
// Payment rows are immutable once created.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicateTransaction if
	// a payment with the same M-Pesa receipt number already exists.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByReceiptNumber retrieves a payment by its M-Pesa receipt
	// number. Returns nil if no payment exists for the receipt.
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (*domain.Payment, error)

	// GetByOrderID retrieves all payments recorded against an order.
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error)
}
