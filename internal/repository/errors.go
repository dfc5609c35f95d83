package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateTransaction is returned when a payment insert collides
	// with an existing row for the same M-Pesa receipt number. The
	// reconciliation engine treats this as "already processed".
	ErrDuplicateTransaction = errors.New("payment already recorded for transaction")
)
