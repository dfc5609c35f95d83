package tests

import (
	"context"
	"errors"
	"testing"

	"enkana/internal/domain"
	"enkana/internal/redis"
	"enkana/internal/repository"
	"enkana/internal/service"
)

func TestCreateOrder_StartsUnpaid(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := service.NewOrderService(orderRepo, nil)

	order, err := svc.CreateOrder(context.Background(), service.CreateOrderRequest{
		CustomerName: "Wanjiru Kamau",
		Phone:        "254712345678",
		TotalAmount:  2000,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if order.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Errorf("expected status %s, got %s", domain.PaymentStatusUnpaid, order.PaymentStatus)
	}
	if order.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if order.CheckoutRequestID != "" || order.MpesaReceiptNumber != "" {
		t.Error("expected no payment references on a fresh order")
	}
	if stored := orderRepo.GetOrder(order.ID); stored == nil {
		t.Error("expected order persisted")
	}
}

func TestCreateOrder_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := service.NewOrderService(NewMockOrderRepository(), nil)

	cases := []struct {
		name string
		req  service.CreateOrderRequest
		want error
	}{
		{"missing name", service.CreateOrderRequest{Phone: "254712345678", TotalAmount: 2000}, service.ErrInvalidCustomerName},
		{"missing phone", service.CreateOrderRequest{CustomerName: "Wanjiru", TotalAmount: 2000}, service.ErrInvalidPhoneNumber},
		{"zero amount", service.CreateOrderRequest{CustomerName: "Wanjiru", Phone: "254712345678"}, service.ErrInvalidPaymentAmount},
		{"negative amount", service.CreateOrderRequest{CustomerName: "Wanjiru", Phone: "254712345678", TotalAmount: -100}, service.ErrInvalidPaymentAmount},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.CreateOrder(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGetPaymentStatus_ServesFromCache(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	cache := NewMockCacheStore()
	svc := service.NewOrderService(orderRepo, cache)

	_ = cache.SetOrder(context.Background(), &redis.CachedOrder{
		ID:            "order-1",
		PaymentStatus: string(domain.PaymentStatusPending),
		TotalAmount:   2000,
	})

	// The repo is empty: a hit proves the cache served the poll.
	status, err := svc.GetPaymentStatus(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status.PaymentStatus != string(domain.PaymentStatusPending) {
		t.Errorf("expected cached status pending, got %q", status.PaymentStatus)
	}
}

func TestGetPaymentStatus_FillsCacheOnMiss(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	cache := NewMockCacheStore()
	svc := service.NewOrderService(orderRepo, cache)

	order := unpaidOrder("order-1", 2000)
	order.PaymentStatus = domain.PaymentStatusPaid
	order.MpesaReceiptNumber = "QAX123"
	orderRepo.AddOrder(order)

	status, err := svc.GetPaymentStatus(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status.PaymentStatus != string(domain.PaymentStatusPaid) {
		t.Errorf("expected status paid, got %q", status.PaymentStatus)
	}
	if status.MpesaReceiptNumber != "QAX123" {
		t.Errorf("expected receipt on status, got %q", status.MpesaReceiptNumber)
	}

	cached, _ := cache.GetOrder(context.Background(), "order-1")
	if cached == nil {
		t.Fatal("expected status written back to the cache")
	}
	if cached.PaymentStatus != string(domain.PaymentStatusPaid) {
		t.Errorf("expected cached status paid, got %q", cached.PaymentStatus)
	}
}

func TestGetPaymentStatus_UnknownOrder(t *testing.T) {
	t.Parallel()

	svc := service.NewOrderService(NewMockOrderRepository(), NewMockCacheStore())

	if _, err := svc.GetPaymentStatus(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetPaymentStatus(context.Background(), ""); !errors.Is(err, service.ErrInvalidOrderID) {
		t.Errorf("expected ErrInvalidOrderID, got %v", err)
	}
}
