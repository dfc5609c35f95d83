package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"enkana/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPaymentReceived NotificationType = "PAYMENT_RECEIVED"
	NotificationPaymentFailed   NotificationType = "PAYMENT_FAILED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type      NotificationType
	Recipient string // customer phone number
	Title     string
	Message   string
	Data      map[string]interface{}
	CreatedAt time.Time
}

// NotificationService handles customer notification delivery.
type NotificationService struct {
	// In a real system, this would have an SMS client.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyPaymentReceived confirms a successful payment to the customer.
func (s *NotificationService) NotifyPaymentReceived(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	notification := Notification{
		Type:      NotificationPaymentReceived,
		Recipient: order.Phone,
		Title:     "Payment Received",
		Message:   fmt.Sprintf("We received KES %.0f for your order. Receipt %s.", payment.Amount, payment.MpesaReceiptNumber),
		Data: map[string]interface{}{
			"order_id":   order.ID,
			"payment_id": payment.ID,
			"receipt":    payment.MpesaReceiptNumber,
			"amount":     payment.Amount,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyPaymentFailed tells the customer their payment did not go through.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, order *domain.Order, reason string) error {
	notification := Notification{
		Type:      NotificationPaymentFailed,
		Recipient: order.Phone,
		Title:     "Payment Failed",
		Message:   fmt.Sprintf("Your payment of KES %.0f did not complete: %s. Please try again.", order.TotalAmount, reason),
		Data: map[string]interface{}{
			"order_id": order.ID,
			"reason":   reason,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// send delivers a notification (mock implementation).
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	// A production build would hand this to an SMS gateway.
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Message=%s",
		notification.Type, notification.Recipient, notification.Message)

	return nil
}
