package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Product is a live catalog entry. Orders never reference it after
// checkout; they carry frozen snapshots instead.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// CartItem is a stored cart row. Price is resolved from the live
// catalog at read time; it only freezes at checkout.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLine is a cart row joined with its product, the unit handed to
// checkout as part of the frozen snapshot.
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// Store persists products and carts.
type Store interface {
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, bool, error)
	ListProducts(ctx context.Context, category string) ([]*Product, error)
	SetCartItem(ctx context.Context, userID string, item CartItem) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
	CartItems(ctx context.Context, userID string) ([]CartItem, error)
	ClearCart(ctx context.Context, userID string) error
}

// Service is the catalog and cart surface consumed by the storefront
// and, exactly once per order, by checkout.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateProduct(ctx context.Context, name, description, image, category string, price int) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	p := &Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Price:       price,
		Image:       image,
		Category:    category,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	return s.store.UpdateProduct(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, found, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, category string) ([]*Product, error) {
	return s.store.ListProducts(ctx, category)
}

func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, found, err := s.store.GetProduct(ctx, productID); err != nil {
		return err
	} else if !found {
		return ErrProductNotFound
	}
	return s.store.SetCartItem(ctx, userID, CartItem{ProductID: productID, Quantity: quantity})
}

func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	return s.store.RemoveCartItem(ctx, userID, productID)
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	return s.store.ClearCart(ctx, userID)
}

// CartContents resolves the user's cart against the live catalog. The
// returned lines become the order's frozen snapshot; after checkout the
// catalog is never consulted for that order again.
func (s *Service) CartContents(ctx context.Context, userID string) ([]CartLine, error) {
	items, err := s.store.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		p, found, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !found {
			// Product removed from catalog since it was carted.
			continue
		}
		lines = append(lines, CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  item.Quantity,
			Image:     p.Image,
		})
	}
	return lines, nil
}
