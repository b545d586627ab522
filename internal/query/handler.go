package query

import (
	"context"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/domain/order"
)

// Handler serves the read side: order and catalog lookups. It never
// mutates state and never decides transition legality.
type Handler struct {
	orders  *order.Service
	catalog *catalog.Service
}

func NewHandler(orders *order.Service, catalogSvc *catalog.Service) *Handler {
	return &Handler{orders: orders, catalog: catalogSvc}
}

// GetOrder returns one order by its public order number.
func (h *Handler) GetOrder(ctx context.Context, orderNumber string) (*order.Order, error) {
	return h.orders.Get(ctx, orderNumber)
}

// ListOrders returns orders matching the filter (admin view).
func (h *Handler) ListOrders(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	return h.orders.List(ctx, f)
}

// ListOrdersByEmail returns the orders placed with a shipping email.
func (h *Handler) ListOrdersByEmail(ctx context.Context, email string) ([]*order.Order, error) {
	return h.orders.List(ctx, order.Filter{Email: email})
}

// GetProduct returns one catalog product.
func (h *Handler) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return h.catalog.GetProduct(ctx, id)
}

// ListProducts returns catalog products, optionally by category.
func (h *Handler) ListProducts(ctx context.Context, category string) ([]*catalog.Product, error) {
	return h.catalog.ListProducts(ctx, category)
}

// GetCart returns the user's cart joined with live product data.
func (h *Handler) GetCart(ctx context.Context, userID string) ([]catalog.CartLine, error) {
	return h.catalog.CartContents(ctx, userID)
}
