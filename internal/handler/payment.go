package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"enkana/internal/mpesa"
	"enkana/internal/service"
)

const (
	// maxCallbackBytes bounds what we are willing to read from the
	// gateway's webhook.
	maxCallbackBytes = 1 << 20

	// callbackProcessTimeout bounds reconciliation of one callback. The
	// webhook response has already been written by then, so this only
	// protects the worker goroutine.
	callbackProcessTimeout = 30 * time.Second
)

// PaymentHandler handles HTTP requests for payments, including the
// inbound M-Pesa callback webhook.
type PaymentHandler struct {
	paymentService        *service.PaymentService
	reconciliationService *service.ReconciliationService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, reconciliationService *service.ReconciliationService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:        paymentService,
		reconciliationService: reconciliationService,
	}
}

// InitiateSTKPushRequest is the HTTP request body for initiating a payment.
type InitiateSTKPushRequest struct {
	OrderID string  `json:"order_id"`
	Phone   string  `json:"phone"`
	Amount  float64 `json:"amount"`
}

// InitiateSTKPushResponse is the HTTP response for a payment initiation.
type InitiateSTKPushResponse struct {
	OrderID           string `json:"order_id"`
	PaymentStatus     string `json:"payment_status"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
}

// QueryStatusRequest is the HTTP request body for the status-query fallback.
type QueryStatusRequest struct {
	CheckoutRequestID string `json:"checkout_request_id"`
}

// PaymentResponse is the HTTP response for payment lookups.
type PaymentResponse struct {
	ID                 string    `json:"id"`
	OrderID            string    `json:"order_id"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number"`
	Amount             float64   `json:"amount"`
	PhoneNumber        string    `json:"phone_number"`
	TransactionDate    time.Time `json:"transaction_date"`
	CreatedAt          time.Time `json:"created_at"`
}

// InitiateSTKPush handles POST /v1/payments/stkpush
func (h *PaymentHandler) InitiateSTKPush(c *gin.Context) {
	var req InitiateSTKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.OrderID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "order_id is required"})
		return
	}

	resp, err := h.paymentService.InitiateSTKPush(c.Request.Context(), service.InitiateSTKPushRequest{
		OrderID: req.OrderID,
		Phone:   req.Phone,
		Amount:  req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusAccepted, InitiateSTKPushResponse{
		OrderID:           resp.Order.ID,
		PaymentStatus:     string(resp.Order.PaymentStatus),
		CheckoutRequestID: resp.Order.CheckoutRequestID,
		CustomerMessage:   resp.ResponseMessage,
	})
}

// Callback handles POST /v1/payments/callback, the webhook Daraja
// invokes minutes after an STK push. The gateway times out fast and
// retries on anything but a 200, so the fixed acceptance body is
// written before reconciliation starts and regardless of its outcome;
// the idempotent paid transition makes those retries safe.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))

	// Acknowledge first, unconditionally.
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})

	if err != nil {
		log.Printf("callback: failed to read body: %v", err)
		return
	}

	result, err := mpesa.ParseCallback(body)
	if err != nil {
		// Retrying an unparseable payload can never succeed, so it is
		// logged and dropped rather than ever NACKed.
		log.Printf("callback: discarding unparseable payload: %v", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), callbackProcessTimeout)
		defer cancel()

		if err := h.reconciliationService.HandleCallback(ctx, result); err != nil {
			log.Printf("callback: reconciliation failed for %s: %v", result.CheckoutRequestID, err)
		}
	}()
}

// QueryStatus handles POST /v1/payments/query, the operator's poll
// fallback when a callback has not arrived. The raw gateway result is
// passed through untouched.
func (h *PaymentHandler) QueryStatus(c *gin.Context) {
	var req QueryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	raw, err := h.paymentService.QueryStatus(c.Request.Context(), req.CheckoutRequestID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", json.RawMessage(raw))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PaymentResponse{
		ID:                 payment.ID,
		OrderID:            payment.OrderID,
		MpesaReceiptNumber: payment.MpesaReceiptNumber,
		Amount:             payment.Amount,
		PhoneNumber:        payment.PhoneNumber,
		TransactionDate:    payment.TransactionDate,
		CreatedAt:          payment.CreatedAt,
	})
}
