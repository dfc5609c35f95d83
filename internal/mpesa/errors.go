package mpesa

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when the Daraja consumer key or
	// secret has not been configured.
	ErrMissingCredentials = errors.New("mpesa consumer key/secret not configured")

	// ErrInvalidAmount is returned when an STK push is attempted with a
	// zero or negative amount. Rejected locally, before any network call.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// GatewayError is returned when the gateway responds with a non-2xx
// status. Callers must not assume the request was not received: a late
// success callback can still arrive for an initiate call that failed
// client-side, and reconciliation handles that case.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mpesa gateway returned %d: %s", e.Status, e.Body)
}
