package domain

import "time"

// Payment records money received through M-Pesa for an order.
// Created exactly once per successful callback and never updated or
// deleted; MpesaReceiptNumber is unique, which is what makes duplicate
// callback deliveries safe.
type Payment struct {
	ID                 string
	OrderID            string
	MpesaReceiptNumber string
	Amount             float64
	PhoneNumber        string
	TransactionDate    time.Time
	MerchantRequestID  string
	CheckoutRequestID  string
	ResultCode         int
	ResultDesc         string
	CreatedAt          time.Time
}
