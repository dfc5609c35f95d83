package domain

import "time"

// PaymentException is an append-only record of money or a failure notice
// that could not be cleanly matched to an order. It is created by the
// reconciliation engine and only ever mutated by an operator flipping
// Resolved to true after investigating out of band.
type PaymentException struct {
	ID                 string
	MpesaReceiptNumber string // empty for failed attempts that never produced a receipt
	CheckoutRequestID  string
	Amount             float64
	PhoneNumber        string
	ResultCode         int
	ResultDesc         string
	Reason             string
	Resolved           bool
	CreatedAt          time.Time
}
