package service

import (
	"context"
	"database/sql"

	"enkana/internal/domain"
	"enkana/internal/repository/postgres"
)

// PaymentApplier applies the paid transition: the order update and the
// payment insert must both happen or neither. The reconciliation engine
// depends on this contract; a failure here propagates as a hard error
// because losing the write would mean money was received without the
// system knowing it.
type PaymentApplier interface {
	ApplyPayment(ctx context.Context, order *domain.Order, payment *domain.Payment) error
}

// TxPaymentApplier runs both writes inside a single database
// transaction. The payment insert goes first so a duplicate receipt
// number surfaces as repository.ErrDuplicateTransaction before the
// order is touched.
type TxPaymentApplier struct {
	db *sql.DB
}

// NewTxPaymentApplier creates a transactional PaymentApplier.
func NewTxPaymentApplier(db *sql.DB) *TxPaymentApplier {
	return &TxPaymentApplier{db: db}
}

// ApplyPayment inserts the payment and updates the order atomically.
func (a *TxPaymentApplier) ApplyPayment(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	txPaymentRepo := postgres.NewPaymentRepositoryWithTx(tx)
	txOrderRepo := postgres.NewOrderRepositoryWithTx(tx)

	if err = txPaymentRepo.Create(ctx, payment); err != nil {
		return err
	}

	if err = txOrderRepo.Update(ctx, order); err != nil {
		return err
	}

	return tx.Commit()
}
