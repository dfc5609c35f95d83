package domain

import "time"

// PaymentStatus represents where an order sits in the payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Order represents a customer order in the system.
//
// CheckoutRequestID is the join key that ties an asynchronous M-Pesa
// callback back to the order that triggered it. It is set when an STK
// push is initiated and overwritten by any later payment attempt, so a
// late callback for a superseded attempt will not match any order.
// Invariant: PaymentStatus == paid implies MpesaReceiptNumber is set and
// a Payment record with that receipt number exists.
type Order struct {
	ID                 string
	CustomerName       string
	Phone              string
	TotalAmount        float64
	PaymentStatus      PaymentStatus
	CheckoutRequestID  string
	MerchantRequestID  string
	MpesaReceiptNumber string
	PaidAt             time.Time
	CreatedAt          time.Time
}
