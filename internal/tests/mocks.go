package tests

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"enkana/internal/domain"
	"enkana/internal/mpesa"
	"enkana/internal/redis"
	"enkana/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	UpdateError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		copy := *o
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockOrderRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.CheckoutRequestID == checkoutRequestID {
			copy := *o
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

// GetOrder returns an order for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
// Like the real table it enforces receipt-number uniqueness on insert.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.MpesaReceiptNumber == payment.MpesaReceiptNumber {
			return repository.ErrDuplicateTransaction
		}
	}
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByReceiptNumber(ctx context.Context, receiptNumber string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.MpesaReceiptNumber == receiptNumber {
			copy := *p
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountPayments returns the number of payment rows for test assertions.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// ──────────────────────────────────────────────
// MOCK EXCEPTION REPOSITORY
// ──────────────────────────────────────────────

// MockExceptionRepository is a mock implementation of ExceptionRepository.
type MockExceptionRepository struct {
	mu         sync.RWMutex
	exceptions map[string]*domain.PaymentException

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockExceptionRepository creates a new mock exception repository.
func NewMockExceptionRepository() *MockExceptionRepository {
	return &MockExceptionRepository{
		exceptions: make(map[string]*domain.PaymentException),
	}
}

// AddException adds an exception to the mock repository.
func (m *MockExceptionRepository) AddException(exception *domain.PaymentException) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceptions[exception.ID] = exception
}

func (m *MockExceptionRepository) Create(ctx context.Context, exception *domain.PaymentException) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *exception
	m.exceptions[exception.ID] = &copy
	return nil
}

func (m *MockExceptionRepository) GetByID(ctx context.Context, id string) (*domain.PaymentException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exception, ok := m.exceptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *exception
	return &copy, nil
}

func (m *MockExceptionRepository) ListUnresolved(ctx context.Context) ([]*domain.PaymentException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PaymentException
	for _, e := range m.exceptions {
		if !e.Resolved {
			copy := *e
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockExceptionRepository) MarkResolved(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exception, ok := m.exceptions[id]
	if !ok {
		return repository.ErrNotFound
	}
	exception.Resolved = true
	return nil
}

// CountExceptions returns the total number of exceptions for test assertions.
func (m *MockExceptionRepository) CountExceptions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exceptions)
}

// Exceptions returns all exceptions for test assertions.
func (m *MockExceptionRepository) Exceptions() []*domain.PaymentException {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.PaymentException, 0, len(m.exceptions))
	for _, e := range m.exceptions {
		copy := *e
		result = append(result, &copy)
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK PAYMENT APPLIER
// ──────────────────────────────────────────────

// MockPaymentApplier applies the paid transition against the mock
// repositories, mirroring the transactional postgres applier: the
// payment insert runs first so a duplicate receipt aborts before the
// order changes.
type MockPaymentApplier struct {
	orderRepo   *MockOrderRepository
	paymentRepo *MockPaymentRepository

	// Counters for verification
	ApplyCallCount int32

	// Error injection
	ApplyError error
}

// NewMockPaymentApplier creates a new mock applier over the given repositories.
func NewMockPaymentApplier(orderRepo *MockOrderRepository, paymentRepo *MockPaymentRepository) *MockPaymentApplier {
	return &MockPaymentApplier{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
	}
}

func (m *MockPaymentApplier) ApplyPayment(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	atomic.AddInt32(&m.ApplyCallCount, 1)
	if m.ApplyError != nil {
		return m.ApplyError
	}
	if err := m.paymentRepo.Create(ctx, payment); err != nil {
		return err
	}
	return m.orderRepo.Update(ctx, order)
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of the M-Pesa gateway client.
type MockGateway struct {
	// Scripted responses
	InitiateResponse *mpesa.STKPushResponse
	QueryResponse    json.RawMessage

	// Counters for verification
	InitiateCallCount int32
	QueryCallCount    int32

	// Error injection
	InitiateError error
	QueryError    error
}

// NewMockGateway creates a mock gateway that hands out the given
// checkout request ID.
func NewMockGateway(checkoutRequestID string) *MockGateway {
	return &MockGateway{
		InitiateResponse: &mpesa.STKPushResponse{
			MerchantRequestID:   "mr-" + checkoutRequestID,
			CheckoutRequestID:   checkoutRequestID,
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
			CustomerMessage:     "Success. Request accepted for processing",
		},
	}
}

func (m *MockGateway) InitiatePayment(ctx context.Context, phone string, amount float64, orderID string) (*mpesa.STKPushResponse, error) {
	atomic.AddInt32(&m.InitiateCallCount, 1)
	if m.InitiateError != nil {
		return nil, m.InitiateError
	}
	if amount <= 0 {
		return nil, mpesa.ErrInvalidAmount
	}
	return m.InitiateResponse, nil
}

func (m *MockGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (json.RawMessage, error) {
	atomic.AddInt32(&m.QueryCallCount, 1)
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	return m.QueryResponse, nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[orderID] {
		return false, nil
	}
	m.locks[orderID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseOrderLock(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, orderID)
	return nil
}

// Hold marks a lock as held so contention paths can be exercised.
func (m *MockLockStore) Hold(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[orderID] = true
}

// MockCacheStore is an in-memory implementation of OrderCacheInterface.
type MockCacheStore struct {
	mu     sync.Mutex
	orders map[string]*redis.CachedOrder

	// Counters for verification
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{orders: make(map[string]*redis.CachedOrder)}
}

func (m *MockCacheStore) GetOrder(ctx context.Context, orderID string) (*redis.CachedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	copy := *order
	return &copy, nil
}

func (m *MockCacheStore) SetOrder(ctx context.Context, order *redis.CachedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateOrder(ctx context.Context, orderID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
	return nil
}
