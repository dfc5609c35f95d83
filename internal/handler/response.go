package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"enkana/internal/mpesa"
	"enkana/internal/repository"
	"enkana/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository/gateway errors to HTTP
// status codes.
func mapErrorToHTTPStatus(err error) int {
	var gatewayErr *mpesa.GatewayError

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidCustomerName),
		errors.Is(err, service.ErrInvalidPhoneNumber),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidExceptionID),
		errors.Is(err, service.ErrInvalidCheckoutRequestID),
		errors.Is(err, mpesa.ErrInvalidAmount):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrOrderAlreadyPaid),
		errors.Is(err, service.ErrPaymentInProgress):
		return http.StatusConflict

	// Gateway rejected or unreachable - the operator can retry.
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway

	// Default to internal server error (includes missing credentials).
	default:
		return http.StatusInternalServerError
	}
}
