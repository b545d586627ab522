package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/storefront/internal/domain/order"
)

// MemoryOrderStore keeps orders in memory behind a single mutex. It is
// the reference implementation of the conditional-commit contract and
// backs the API in dev mode and tests.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*order.Order)}
}

func (m *MemoryOrderStore) Insert(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.OrderNumber]; exists {
		return order.ErrDuplicateOrderNumber
	}
	m.orders[o.OrderNumber] = o.Clone()
	return nil
}

func (m *MemoryOrderStore) Find(ctx context.Context, orderNumber string) (*order.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

// Commit applies o only if the stored version still equals
// expectedVersion. A stale writer gets order.ErrConflict and must
// re-read before retrying.
func (m *MemoryOrderStore) Commit(ctx context.Context, o *order.Order, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[o.OrderNumber]
	if !ok {
		return order.ErrOrderNotFound
	}
	if cur.Version != expectedVersion {
		return order.ErrConflict
	}
	o.Version = expectedVersion + 1
	m.orders[o.OrderNumber] = o.Clone()
	return nil
}

func (m *MemoryOrderStore) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*order.Order
	for _, o := range m.orders {
		if f.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
