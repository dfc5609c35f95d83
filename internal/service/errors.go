package service

import "errors"

var (
	// ErrInvalidOrderID is returned when order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidCustomerName is returned when customer name is empty.
	ErrInvalidCustomerName = errors.New("invalid customer name")

	// ErrInvalidPhoneNumber is returned when phone number is empty.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// ErrInvalidPaymentAmount is returned when payment amount is invalid.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidExceptionID is returned when exception ID is empty.
	ErrInvalidExceptionID = errors.New("invalid exception id")

	// ErrInvalidCheckoutRequestID is returned when a checkout request ID
	// is empty.
	ErrInvalidCheckoutRequestID = errors.New("invalid checkout request id")

	// ErrOrderAlreadyPaid is returned when payment is initiated for an
	// order that has already been paid.
	ErrOrderAlreadyPaid = errors.New("order already paid")

	// ErrPaymentInProgress is returned when payment initiation is
	// attempted while another initiation holds the order lock.
	ErrPaymentInProgress = errors.New("payment initiation already in progress for order")
)
