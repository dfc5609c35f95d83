package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// OrderCacheTTL is short because the dashboard polls payment status
// while an STK push is in flight and must see the paid transition soon
// after the callback lands.
const OrderCacheTTL = 10 * time.Second

const orderCachePrefix = "cache:order:"

// CachedOrder is the payment-status view of an order served to the
// polling dashboard.
type CachedOrder struct {
	ID                 string    `json:"id"`
	PaymentStatus      string    `json:"payment_status"`
	CheckoutRequestID  string    `json:"checkout_request_id"`
	MpesaReceiptNumber string    `json:"mpesa_receipt_number"`
	TotalAmount        float64   `json:"total_amount"`
	PaidAt             time.Time `json:"paid_at"`
}

// GetOrder retrieves an order's payment-status view from cache.
// Returns nil on a cache miss.
func (s *CacheStore) GetOrder(ctx context.Context, orderID string) (*CachedOrder, error) {
	key := orderCachePrefix + orderID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var order CachedOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrder stores an order's payment-status view in cache.
func (s *CacheStore) SetOrder(ctx context.Context, order *CachedOrder) error {
	key := orderCachePrefix + order.ID
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, OrderCacheTTL).Err()
}

// InvalidateOrder removes an order from cache. Called on every payment
// state transition so the polling UI never sees a stale status past the
// TTL window.
func (s *CacheStore) InvalidateOrder(ctx context.Context, orderID string) error {
	key := orderCachePrefix + orderID
	return s.client.Del(ctx, key).Err()
}
