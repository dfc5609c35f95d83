package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"enkana/internal/domain"
	"enkana/internal/redis"
	"enkana/internal/repository"
)

// OrderService handles order operations for the dashboard.
type OrderService struct {
	orderRepo repository.OrderRepository
	cache     redis.OrderCacheInterface
}

// NewOrderService creates a new OrderService. cache may be nil.
func NewOrderService(orderRepo repository.OrderRepository, cache redis.OrderCacheInterface) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		cache:     cache,
	}
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	CustomerName string
	Phone        string
	TotalAmount  float64
}

// CreateOrder creates a new order in the unpaid state.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if req.CustomerName == "" {
		return nil, ErrInvalidCustomerName
	}

	if req.Phone == "" {
		return nil, ErrInvalidPhoneNumber
	}

	if req.TotalAmount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	order := &domain.Order{
		ID:            uuid.New().String(),
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		TotalAmount:   req.TotalAmount,
		PaymentStatus: domain.PaymentStatusUnpaid,
		CreatedAt:     time.Now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.orderRepo.GetByID(ctx, orderID)
}

// GetAllOrders retrieves all orders, newest first.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.GetAll(ctx)
}

// GetPaymentStatus serves the dashboard's payment-status poll through
// the Redis cache. The cache entry is short-lived and invalidated on
// every payment transition, so polls converge quickly after a callback
// lands without hitting Postgres on every refresh.
func (s *OrderService) GetPaymentStatus(ctx context.Context, orderID string) (*redis.CachedOrder, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	if s.cache != nil {
		cached, err := s.cache.GetOrder(ctx, orderID)
		if err != nil {
			log.Printf("order: cache read failed for %s: %v", orderID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	cached := &redis.CachedOrder{
		ID:                 order.ID,
		PaymentStatus:      string(order.PaymentStatus),
		CheckoutRequestID:  order.CheckoutRequestID,
		MpesaReceiptNumber: order.MpesaReceiptNumber,
		TotalAmount:        order.TotalAmount,
		PaidAt:             order.PaidAt,
	}

	if s.cache != nil {
		if err := s.cache.SetOrder(ctx, cached); err != nil {
			log.Printf("order: cache write failed for %s: %v", orderID, err)
		}
	}

	return cached, nil
}
