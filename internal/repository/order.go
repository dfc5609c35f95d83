package repository

import (
	"context"

	"enkana/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetAll retrieves all orders, newest first.
	GetAll(ctx context.Context) ([]*domain.Order, error)

	// GetByCheckoutRequestID retrieves the order whose active payment
	// attempt carries the given checkout request ID. At most one order
	// holds a given reference at any time. Returns ErrNotFound when the
	// reference matches nothing (deleted order, superseded attempt, or a
	// crash between initiation and the write).
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Order, error)

	// Update persists the mutable payment fields of an order.
	Update(ctx context.Context, order *domain.Order) error
}
