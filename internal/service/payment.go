package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"enkana/internal/domain"
	"enkana/internal/mpesa"
	"enkana/internal/redis"
	"enkana/internal/repository"
)

// stkPushLockTTL bounds how long an initiation lock can outlive a
// crashed request. M-Pesa's own prompt expires on the handset well
// within this window.
const stkPushLockTTL = 2 * time.Minute

// Gateway is the interface for the M-Pesa client.
type Gateway interface {
	InitiatePayment(ctx context.Context, phone string, amount float64, orderID string) (*mpesa.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (json.RawMessage, error)
}

// PaymentService handles the initiation half of the payment flow:
// firing an STK push and moving the order to pending with the checkout
// reference a later callback will be matched on.
type PaymentService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	gateway     Gateway
	locks       redis.LockStoreInterface
	cache       redis.OrderCacheInterface
}

// NewPaymentService creates a new PaymentService. locks and cache may
// be nil.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	gateway Gateway,
	locks redis.LockStoreInterface,
	cache redis.OrderCacheInterface,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		locks:       locks,
		cache:       cache,
	}
}

// InitiateSTKPushRequest contains the parameters for initiating a payment.
// Phone and Amount default to the order's own values when unset.
type InitiateSTKPushRequest struct {
	OrderID string
	Phone   string
	Amount  float64
}

// InitiateSTKPushResponse carries the updated order and the gateway's
// acknowledgement.
type InitiateSTKPushResponse struct {
	Order           *domain.Order
	ResponseMessage string
}

// InitiateSTKPush validates the order, fires the STK push, and records
// the new checkout reference on the order. A previous attempt's
// reference is overwritten: a stale attempt's late callback must not
// resurrect this order, it lands in the exception ledger instead.
//
// A gateway error here does not mean the gateway never received the
// request. The order is left untouched and the callback path remains
// able to reconcile whatever eventually arrives.
func (s *PaymentService) InitiateSTKPush(ctx context.Context, req InitiateSTKPushRequest) (*InitiateSTKPushResponse, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, ErrOrderAlreadyPaid
	}

	phone := req.Phone
	if phone == "" {
		phone = order.Phone
	}
	if phone == "" {
		return nil, ErrInvalidPhoneNumber
	}

	amount := req.Amount
	if amount == 0 {
		amount = order.TotalAmount
	}
	if amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	if s.locks != nil {
		ok, err := s.locks.AcquireOrderLock(ctx, order.ID, stkPushLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPaymentInProgress
		}
		defer func() {
			_ = s.locks.ReleaseOrderLock(ctx, order.ID)
		}()
	}

	resp, err := s.gateway.InitiatePayment(ctx, phone, amount, order.ID)
	if err != nil {
		return nil, err
	}

	order.PaymentStatus = domain.PaymentStatusPending
	order.CheckoutRequestID = resp.CheckoutRequestID
	order.MerchantRequestID = resp.MerchantRequestID

	if err := s.orderRepo.Update(ctx, order); err != nil {
		// The push is already live on the customer's phone. Its
		// callback will land in the exception ledger since the
		// reference was never persisted.
		log.Printf("payment: failed to record checkout reference %s for order %s: %v",
			resp.CheckoutRequestID, order.ID, err)
		return nil, err
	}

	s.invalidate(ctx, order.ID)

	return &InitiateSTKPushResponse{
		Order:           order,
		ResponseMessage: resp.CustomerMessage,
	}, nil
}

// QueryStatus is the synchronous poll fallback for when a callback has
// not arrived. It returns the raw gateway result and mutates nothing.
func (s *PaymentService) QueryStatus(ctx context.Context, checkoutRequestID string) (json.RawMessage, error) {
	if checkoutRequestID == "" {
		return nil, ErrInvalidCheckoutRequestID
	}

	return s.gateway.QueryStatus(ctx, checkoutRequestID)
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentID)
}

func (s *PaymentService) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
		log.Printf("payment: failed to invalidate order cache for %s: %v", orderID, err)
	}
}
