package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"enkana/internal/domain"
	"enkana/internal/mpesa"
	"enkana/internal/redis"
	"enkana/internal/repository"
)

// ReconciliationService ties asynchronous gateway callbacks back to the
// orders that triggered them. It is the only writer of Payment rows and
// the only creator of PaymentExceptions.
//
// Transitions, keyed on the callback's CheckoutRequestID:
//   - success + matching order  -> order paid, Payment created (atomic,
//     idempotent on the M-Pesa receipt number)
//   - failure + matching order  -> order reverted to unpaid, exception filed
//   - no matching order         -> exception filed, no order touched
//
// Duplicate deliveries of the same callback are swallowed as no-op
// successes; money or a failure notice is never dropped.
type ReconciliationService struct {
	orderRepo     repository.OrderRepository
	paymentRepo   repository.PaymentRepository
	exceptionRepo repository.ExceptionRepository
	applier       PaymentApplier
	cache         redis.OrderCacheInterface
	notifications *NotificationService
	now           func() time.Time
}

// NewReconciliationService creates a new ReconciliationService.
// cache and notifications may be nil.
func NewReconciliationService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	exceptionRepo repository.ExceptionRepository,
	applier PaymentApplier,
	cache redis.OrderCacheInterface,
	notifications *NotificationService,
) *ReconciliationService {
	return &ReconciliationService{
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		exceptionRepo: exceptionRepo,
		applier:       applier,
		cache:         cache,
		notifications: notifications,
		now:           time.Now,
	}
}

// HandleCallback applies a normalized gateway callback to the order it
// belongs to, or files an exception when no clean match exists. It
// returns an error only for storage failures that must not be lost;
// every expected outcome, including duplicates and unmatched callbacks,
// resolves to nil.
func (s *ReconciliationService) HandleCallback(ctx context.Context, result *mpesa.CallbackResult) error {
	if result == nil || result.CheckoutRequestID == "" {
		return ErrInvalidCheckoutRequestID
	}

	order, err := s.orderRepo.GetByCheckoutRequestID(ctx, result.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.recordUnmatched(ctx, result)
		}
		return err
	}

	if result.Success() {
		return s.applySuccess(ctx, order, result)
	}

	return s.applyFailure(ctx, order, result)
}

// applySuccess performs the pending -> paid transition. The check on
// the receipt number plus the unique constraint behind the applier make
// redelivered callbacks safe: exactly one Payment row ever exists per
// receipt.
func (s *ReconciliationService) applySuccess(ctx context.Context, order *domain.Order, result *mpesa.CallbackResult) error {
	existing, err := s.paymentRepo.GetByReceiptNumber(ctx, result.ReceiptNumber)
	if err != nil {
		return err
	}

	if existing != nil {
		log.Printf("reconciliation: callback for receipt %s already processed, ignoring", result.ReceiptNumber)
		return nil
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		// Same checkout reference, different receipt. Never double-pay
		// an order; park the money for an operator instead.
		return s.recordException(ctx, result, "order "+order.ID+" already paid")
	}

	now := s.now()

	paid := *order
	paid.PaymentStatus = domain.PaymentStatusPaid
	paid.MpesaReceiptNumber = result.ReceiptNumber
	paid.PaidAt = now

	payment := &domain.Payment{
		ID:                 uuid.New().String(),
		OrderID:            order.ID,
		MpesaReceiptNumber: result.ReceiptNumber,
		Amount:             result.Amount,
		PhoneNumber:        result.PhoneNumber,
		TransactionDate:    result.TransactionDate,
		MerchantRequestID:  result.MerchantRequestID,
		CheckoutRequestID:  result.CheckoutRequestID,
		ResultCode:         result.ResultCode,
		ResultDesc:         result.ResultDesc,
		CreatedAt:          now,
	}

	if err := s.applier.ApplyPayment(ctx, &paid, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			// A concurrent delivery of the same callback won the insert.
			log.Printf("reconciliation: receipt %s recorded concurrently, ignoring", result.ReceiptNumber)
			return nil
		}
		return err
	}

	s.invalidate(ctx, order.ID)

	if s.notifications != nil {
		_ = s.notifications.NotifyPaymentReceived(ctx, &paid, payment)
	}

	return nil
}

// applyFailure reverts the order so the dashboard can re-offer payment,
// and files an exception. A failure is never silent.
func (s *ReconciliationService) applyFailure(ctx context.Context, order *domain.Order, result *mpesa.CallbackResult) error {
	reverted := *order
	reverted.PaymentStatus = domain.PaymentStatusUnpaid

	if err := s.orderRepo.Update(ctx, &reverted); err != nil {
		return err
	}

	if err := s.recordException(ctx, result, failureReason(result)); err != nil {
		return err
	}

	s.invalidate(ctx, order.ID)

	if s.notifications != nil {
		_ = s.notifications.NotifyPaymentFailed(ctx, &reverted, result.ResultDesc)
	}

	return nil
}

// recordUnmatched files a callback whose checkout reference matches no
// order: the order was deleted, the reference was superseded by a newer
// attempt, or a crash lost the initiation write. No order is touched.
func (s *ReconciliationService) recordUnmatched(ctx context.Context, result *mpesa.CallbackResult) error {
	reason := "no matching order"
	if !result.Success() {
		reason = failureReason(result)
	}

	log.Printf("reconciliation: no order for checkout reference %s, filing exception", result.CheckoutRequestID)

	return s.recordException(ctx, result, reason)
}

func (s *ReconciliationService) recordException(ctx context.Context, result *mpesa.CallbackResult, reason string) error {
	exception := &domain.PaymentException{
		ID:                 uuid.New().String(),
		MpesaReceiptNumber: result.ReceiptNumber,
		CheckoutRequestID:  result.CheckoutRequestID,
		Amount:             result.Amount,
		PhoneNumber:        result.PhoneNumber,
		ResultCode:         result.ResultCode,
		ResultDesc:         result.ResultDesc,
		Reason:             reason,
		Resolved:           false,
		CreatedAt:          s.now(),
	}

	return s.exceptionRepo.Create(ctx, exception)
}

func (s *ReconciliationService) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
		log.Printf("reconciliation: failed to invalidate order cache for %s: %v", orderID, err)
	}
}

func failureReason(result *mpesa.CallbackResult) string {
	return fmt.Sprintf("payment failed: %s", result.ResultDesc)
}
