package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"enkana/internal/domain"
	"enkana/internal/service"
)

// ExceptionHandler handles HTTP requests for the payment exception ledger.
type ExceptionHandler struct {
	exceptionService *service.ExceptionService
}

// NewExceptionHandler creates a new ExceptionHandler.
func NewExceptionHandler(exceptionService *service.ExceptionService) *ExceptionHandler {
	return &ExceptionHandler{exceptionService: exceptionService}
}

// ExceptionResponse is the HTTP response for exception operations.
type ExceptionResponse struct {
	ID                 string    `json:"id"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number,omitempty"`
	CheckoutRequestID  string    `json:"checkout_request_id"`
	Amount             float64   `json:"amount"`
	PhoneNumber        string    `json:"phone_number"`
	ResultCode         int       `json:"result_code"`
	ResultDesc         string    `json:"result_desc"`
	Reason             string    `json:"reason"`
	Resolved           bool      `json:"resolved"`
	CreatedAt          time.Time `json:"created_at"`
}

func toExceptionResponse(exception *domain.PaymentException) ExceptionResponse {
	return ExceptionResponse{
		ID:                 exception.ID,
		MpesaReceiptNumber: exception.MpesaReceiptNumber,
		CheckoutRequestID:  exception.CheckoutRequestID,
		Amount:             exception.Amount,
		PhoneNumber:        exception.PhoneNumber,
		ResultCode:         exception.ResultCode,
		ResultDesc:         exception.ResultDesc,
		Reason:             exception.Reason,
		Resolved:           exception.Resolved,
		CreatedAt:          exception.CreatedAt,
	}
}

// ListUnresolved handles GET /v1/exceptions
func (h *ExceptionHandler) ListUnresolved(c *gin.Context) {
	exceptions, err := h.exceptionService.ListUnresolved(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]ExceptionResponse, 0, len(exceptions))
	for _, exception := range exceptions {
		responses = append(responses, toExceptionResponse(exception))
	}

	respondJSON(c, http.StatusOK, responses)
}

// Resolve handles POST /v1/exceptions/:id/resolve
func (h *ExceptionHandler) Resolve(c *gin.Context) {
	exception, err := h.exceptionService.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toExceptionResponse(exception))
}
