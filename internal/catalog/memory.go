package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore backs the catalog in dev mode and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*Product
	carts    map[string]map[string]int // userID -> productID -> quantity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*Product),
		carts:    make(map[string]map[string]int),
	}
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, false, nil
	}
	cp := *p
	return &cp, true, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, category string) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Product
	for _, p := range m.products {
		if category != "" && p.Category != category {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) SetCartItem(ctx context.Context, userID string, item CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts[userID] == nil {
		m.carts[userID] = make(map[string]int)
	}
	m.carts[userID][item.ProductID] = item.Quantity
	return nil
}

func (m *MemoryStore) RemoveCartItem(ctx context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts[userID], productID)
	return nil
}

func (m *MemoryStore) CartItems(ctx context.Context, userID string) ([]CartItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart := m.carts[userID]
	ids := make([]string, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]CartItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, CartItem{ProductID: id, Quantity: cart[id]})
	}
	return items, nil
}

func (m *MemoryStore) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}
