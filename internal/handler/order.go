package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"enkana/internal/domain"
	"enkana/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	CustomerName string  `json:"customer_name"`
	Phone        string  `json:"phone"`
	TotalAmount  float64 `json:"total_amount"`
}

// OrderResponse is the HTTP response for order operations.
type OrderResponse struct {
	ID                 string     `json:"id"`
	CustomerName       string     `json:"customer_name"`
	Phone              string     `json:"phone"`
	TotalAmount        float64    `json:"total_amount"`
	PaymentStatus      string     `json:"payment_status"`
	CheckoutRequestID  string     `json:"checkout_request_id,omitempty"`
	MpesaReceiptNumber string     `json:"mpesa_receipt_number,omitempty"`
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:                 order.ID,
		CustomerName:       order.CustomerName,
		Phone:              order.Phone,
		TotalAmount:        order.TotalAmount,
		PaymentStatus:      string(order.PaymentStatus),
		CheckoutRequestID:  order.CheckoutRequestID,
		MpesaReceiptNumber: order.MpesaReceiptNumber,
		CreatedAt:          order.CreatedAt,
	}
	if !order.PaidAt.IsZero() {
		paidAt := order.PaidAt
		resp.PaidAt = &paidAt
	}
	return resp
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		TotalAmount:  req.TotalAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toOrderResponse(order))
}

// GetAll handles GET /v1/orders
func (h *OrderHandler) GetAll(c *gin.Context) {
	orders, err := h.orderService.GetAllOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order))
	}

	respondJSON(c, http.StatusOK, responses)
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// GetPaymentStatus handles GET /v1/orders/:id/payment-status
// The dashboard polls this while an STK push is in flight.
func (h *OrderHandler) GetPaymentStatus(c *gin.Context) {
	status, err := h.orderService.GetPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, status)
}
