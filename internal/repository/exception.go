package repository

import (
	"context"

	"enkana/internal/domain"
)

// ExceptionRepository defines the persistence operations for the
// payment exception ledger.
type ExceptionRepository interface {
	// Create appends a new exception to the ledger.
	Create(ctx context.Context, exception *domain.PaymentException) error

	// GetByID retrieves an exception by ID.
	GetByID(ctx context.Context, id string) (*domain.PaymentException, error)

	// ListUnresolved retrieves all exceptions awaiting operator review,
	// oldest first.
	ListUnresolved(ctx context.Context) ([]*domain.PaymentException, error)

	// MarkResolved flips the resolved flag. Calling it on an already
	// resolved exception is a no-op, not an error.
	MarkResolved(ctx context.Context, id string) error
}
