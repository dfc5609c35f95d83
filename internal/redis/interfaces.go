package redis

import (
	"context"
	"time"
)

// OrderCacheInterface defines the interface for the order status cache.
type OrderCacheInterface interface {
	GetOrder(ctx context.Context, orderID string) (*CachedOrder, error)
	SetOrder(ctx context.Context, order *CachedOrder) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseOrderLock(ctx context.Context, orderID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ OrderCacheInterface = (*CacheStore)(nil)
	_ LockStoreInterface  = (*LockStore)(nil)
)
