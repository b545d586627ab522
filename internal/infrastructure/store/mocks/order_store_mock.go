package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
)

// MockOrderStore wraps the in-memory store with call recording and
// injectable errors for tests.
type MockOrderStore struct {
	mu    sync.Mutex
	inner *store.MemoryOrderStore

	// For tracking calls in tests
	InsertCalls []*order.Order
	CommitCalls []CommitCall
	InsertErr   error
	CommitErr   error
	FindErr     error
}

// CommitCall records parameters passed to Commit.
type CommitCall struct {
	OrderNumber     string
	ExpectedVersion int
	Status          order.Status
	PaymentStatus   order.PaymentStatus
}

// NewMockOrderStore creates a new MockOrderStore.
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{inner: store.NewMemoryOrderStore()}
}

// Seed inserts an order directly, bypassing call recording.
func (m *MockOrderStore) Seed(o *order.Order) {
	_ = m.inner.Insert(context.Background(), o)
}

func (m *MockOrderStore) Insert(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	m.InsertCalls = append(m.InsertCalls, o.Clone())
	err := m.InsertErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Insert(ctx, o)
}

func (m *MockOrderStore) Find(ctx context.Context, orderNumber string) (*order.Order, bool, error) {
	m.mu.Lock()
	err := m.FindErr
	m.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return m.inner.Find(ctx, orderNumber)
}

func (m *MockOrderStore) Commit(ctx context.Context, o *order.Order, expectedVersion int) error {
	m.mu.Lock()
	m.CommitCalls = append(m.CommitCalls, CommitCall{
		OrderNumber:     o.OrderNumber,
		ExpectedVersion: expectedVersion,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
	})
	err := m.CommitErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Commit(ctx, o, expectedVersion)
}

func (m *MockOrderStore) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	return m.inner.List(ctx, f)
}
