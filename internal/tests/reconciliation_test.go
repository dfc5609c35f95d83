package tests

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"enkana/internal/domain"
	"enkana/internal/mpesa"
	"enkana/internal/service"
)

func newReconciliationFixture() (*service.ReconciliationService, *MockOrderRepository, *MockPaymentRepository, *MockExceptionRepository, *MockPaymentApplier, *MockCacheStore) {
	orderRepo := NewMockOrderRepository()
	paymentRepo := NewMockPaymentRepository()
	exceptionRepo := NewMockExceptionRepository()
	applier := NewMockPaymentApplier(orderRepo, paymentRepo)
	cache := NewMockCacheStore()
	svc := service.NewReconciliationService(orderRepo, paymentRepo, exceptionRepo, applier, cache, nil)
	return svc, orderRepo, paymentRepo, exceptionRepo, applier, cache
}

func pendingOrder(id, checkoutRequestID string, amount float64) *domain.Order {
	return &domain.Order{
		ID:                id,
		CustomerName:      "Wanjiru Kamau",
		Phone:             "254712345678",
		TotalAmount:       amount,
		PaymentStatus:     domain.PaymentStatusPending,
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: "mr-" + checkoutRequestID,
		CreatedAt:         time.Now(),
	}
}

func successResult(checkoutRequestID, receipt string, amount float64) *mpesa.CallbackResult {
	return &mpesa.CallbackResult{
		MerchantRequestID: "mr-" + checkoutRequestID,
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Amount:            amount,
		ReceiptNumber:     receipt,
		TransactionDate:   time.Date(2024, 8, 30, 12, 15, 30, 0, time.UTC),
		PhoneNumber:       "254712345678",
	}
}

func failureResult(checkoutRequestID string, code int, desc string) *mpesa.CallbackResult {
	return &mpesa.CallbackResult{
		MerchantRequestID: "mr-" + checkoutRequestID,
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        code,
		ResultDesc:        desc,
	}
}

func TestReconciliation_SuccessCallbackMarksOrderPaid(t *testing.T) {
	t.Parallel()

	svc, orderRepo, paymentRepo, exceptionRepo, _, cache := newReconciliationFixture()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))

	err := svc.HandleCallback(context.Background(), successResult("ws_CO_1", "QAX123", 2000))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	order := orderRepo.GetOrder("order-1")
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected status %s, got %s", domain.PaymentStatusPaid, order.PaymentStatus)
	}
	if order.MpesaReceiptNumber != "QAX123" {
		t.Errorf("expected receipt QAX123 on order, got %q", order.MpesaReceiptNumber)
	}
	if order.PaidAt.IsZero() {
		t.Error("expected PaidAt to be set")
	}

	if paymentRepo.CountPayments() != 1 {
		t.Errorf("expected exactly 1 payment, got %d", paymentRepo.CountPayments())
	}
	payment, err := paymentRepo.GetByReceiptNumber(context.Background(), "QAX123")
	if err != nil || payment == nil {
		t.Fatalf("expected payment for receipt QAX123, got %v, %v", payment, err)
	}
	if payment.OrderID != "order-1" {
		t.Errorf("expected payment linked to order-1, got %s", payment.OrderID)
	}
	if payment.Amount != 2000 {
		t.Errorf("expected payment amount 2000, got %f", payment.Amount)
	}

	if exceptionRepo.CountExceptions() != 0 {
		t.Errorf("expected no exceptions, got %d", exceptionRepo.CountExceptions())
	}
	if atomic.LoadInt32(&cache.InvalidateCallCount) != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", cache.InvalidateCallCount)
	}
}

func TestReconciliation_DuplicateCallbackIsNoOp(t *testing.T) {
	t.Parallel()

	svc, orderRepo, paymentRepo, _, applier, _ := newReconciliationFixture()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))

	result := successResult("ws_CO_1", "QAX123", 2000)

	if err := svc.HandleCallback(context.Background(), result); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.HandleCallback(context.Background(), result); err != nil {
		t.Fatalf("expected redelivery to succeed as no-op, got %v", err)
	}

	if paymentRepo.CountPayments() != 1 {
		t.Errorf("expected exactly 1 payment after redelivery, got %d", paymentRepo.CountPayments())
	}
	if atomic.LoadInt32(&applier.ApplyCallCount) != 1 {
		t.Errorf("expected applier invoked once, got %d", applier.ApplyCallCount)
	}
	if order := orderRepo.GetOrder("order-1"); order.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected order to stay paid, got %s", order.PaymentStatus)
	}
}

func TestReconciliation_ConcurrentDuplicateInsertIsNoOp(t *testing.T) {
	t.Parallel()

	// A parallel delivery inserted the payment between our receipt
	// pre-check and the applier's own insert. The applier surfaces the
	// constraint violation; reconciliation must treat it as processed.
	orderRepo := NewMockOrderRepository()
	exceptionRepo := NewMockExceptionRepository()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))

	winner := NewMockPaymentRepository()
	_ = winner.Create(context.Background(), &domain.Payment{
		ID:                 "p-existing",
		OrderID:            "order-1",
		MpesaReceiptNumber: "QAX123",
	})
	// Wire the applier to the pre-seeded repo while the service's own
	// pre-check still sees an empty table.
	svc := service.NewReconciliationService(
		orderRepo, NewMockPaymentRepository(), exceptionRepo,
		NewMockPaymentApplier(orderRepo, winner), nil, nil,
	)

	err := svc.HandleCallback(context.Background(), successResult("ws_CO_1", "QAX123", 2000))
	if err != nil {
		t.Fatalf("expected duplicate insert to resolve to nil, got %v", err)
	}
	if exceptionRepo.CountExceptions() != 0 {
		t.Errorf("expected no exceptions, got %d", exceptionRepo.CountExceptions())
	}
}

func TestReconciliation_FailureCallbackRevertsOrder(t *testing.T) {
	t.Parallel()

	svc, orderRepo, paymentRepo, exceptionRepo, _, _ := newReconciliationFixture()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))

	err := svc.HandleCallback(context.Background(), failureResult("ws_CO_1", 1032, "Request cancelled by user"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	order := orderRepo.GetOrder("order-1")
	if order.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Errorf("expected order reverted to %s, got %s", domain.PaymentStatusUnpaid, order.PaymentStatus)
	}
	if paymentRepo.CountPayments() != 0 {
		t.Errorf("expected no payments, got %d", paymentRepo.CountPayments())
	}

	exceptions := exceptionRepo.Exceptions()
	if len(exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(exceptions))
	}
	if exceptions[0].Resolved {
		t.Error("expected exception to be unresolved")
	}
	if !strings.Contains(exceptions[0].Reason, "Request cancelled by user") {
		t.Errorf("expected reason to carry the gateway description, got %q", exceptions[0].Reason)
	}
	if exceptions[0].ResultCode != 1032 {
		t.Errorf("expected result code 1032, got %d", exceptions[0].ResultCode)
	}
}

func TestReconciliation_UnmatchedCallbackFilesException(t *testing.T) {
	t.Parallel()

	svc, orderRepo, paymentRepo, exceptionRepo, _, _ := newReconciliationFixture()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))

	err := svc.HandleCallback(context.Background(), successResult("ws_CO_unknown", "QBZ999", 1500))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// No order may be touched.
	if order := orderRepo.GetOrder("order-1"); order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected order-1 untouched at %s, got %s", domain.PaymentStatusPending, order.PaymentStatus)
	}
	if paymentRepo.CountPayments() != 0 {
		t.Errorf("expected no payments, got %d", paymentRepo.CountPayments())
	}

	exceptions := exceptionRepo.Exceptions()
	if len(exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(exceptions))
	}
	if exceptions[0].Reason != "no matching order" {
		t.Errorf("expected reason %q, got %q", "no matching order", exceptions[0].Reason)
	}
	if exceptions[0].MpesaReceiptNumber != "QBZ999" {
		t.Errorf("expected receipt preserved on exception, got %q", exceptions[0].MpesaReceiptNumber)
	}
	if exceptions[0].Amount != 1500 {
		t.Errorf("expected amount preserved on exception, got %f", exceptions[0].Amount)
	}
}

func TestReconciliation_UnmatchedFailureKeepsGatewayReason(t *testing.T) {
	t.Parallel()

	svc, _, _, exceptionRepo, _, _ := newReconciliationFixture()

	err := svc.HandleCallback(context.Background(), failureResult("ws_CO_gone", 1037, "DS timeout user cannot be reached"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	exceptions := exceptionRepo.Exceptions()
	if len(exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(exceptions))
	}
	if !strings.Contains(exceptions[0].Reason, "DS timeout") {
		t.Errorf("expected failure reason on unmatched exception, got %q", exceptions[0].Reason)
	}
}

func TestReconciliation_AlreadyPaidDifferentReceiptFilesException(t *testing.T) {
	t.Parallel()

	svc, orderRepo, paymentRepo, exceptionRepo, _, _ := newReconciliationFixture()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))

	if err := svc.HandleCallback(context.Background(), successResult("ws_CO_1", "QAX123", 2000)); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	if err := svc.HandleCallback(context.Background(), successResult("ws_CO_1", "QAY456", 2000)); err != nil {
		t.Fatalf("expected second receipt to resolve to nil, got %v", err)
	}

	if paymentRepo.CountPayments() != 1 {
		t.Errorf("expected exactly 1 payment, got %d", paymentRepo.CountPayments())
	}
	if order := orderRepo.GetOrder("order-1"); order.MpesaReceiptNumber != "QAX123" {
		t.Errorf("expected order to keep first receipt, got %q", order.MpesaReceiptNumber)
	}

	exceptions := exceptionRepo.Exceptions()
	if len(exceptions) != 1 {
		t.Fatalf("expected 1 exception for the surplus receipt, got %d", len(exceptions))
	}
	if !strings.Contains(exceptions[0].Reason, "already paid") {
		t.Errorf("expected already-paid reason, got %q", exceptions[0].Reason)
	}
	if exceptions[0].MpesaReceiptNumber != "QAY456" {
		t.Errorf("expected surplus receipt on exception, got %q", exceptions[0].MpesaReceiptNumber)
	}
}

func TestReconciliation_MissingCheckoutReferenceRejected(t *testing.T) {
	t.Parallel()

	svc, _, _, exceptionRepo, _, _ := newReconciliationFixture()

	err := svc.HandleCallback(context.Background(), &mpesa.CallbackResult{ResultCode: 0})
	if !errors.Is(err, service.ErrInvalidCheckoutRequestID) {
		t.Errorf("expected ErrInvalidCheckoutRequestID, got %v", err)
	}
	if err := svc.HandleCallback(context.Background(), nil); !errors.Is(err, service.ErrInvalidCheckoutRequestID) {
		t.Errorf("expected ErrInvalidCheckoutRequestID for nil result, got %v", err)
	}
	if exceptionRepo.CountExceptions() != 0 {
		t.Errorf("expected no exceptions, got %d", exceptionRepo.CountExceptions())
	}
}

func TestReconciliation_ApplierFailurePropagates(t *testing.T) {
	t.Parallel()

	svc, orderRepo, _, exceptionRepo, applier, _ := newReconciliationFixture()
	orderRepo.AddOrder(pendingOrder("order-1", "ws_CO_1", 2000))
	applier.ApplyError = errors.New("connection reset")

	err := svc.HandleCallback(context.Background(), successResult("ws_CO_1", "QAX123", 2000))
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}

	// The callback must be retriable: nothing recorded, order untouched.
	if order := orderRepo.GetOrder("order-1"); order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected order left pending, got %s", order.PaymentStatus)
	}
	if exceptionRepo.CountExceptions() != 0 {
		t.Errorf("expected no exceptions, got %d", exceptionRepo.CountExceptions())
	}
}
