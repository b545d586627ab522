package order

import "context"

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status        Status
	PaymentStatus PaymentStatus
	Email         string
}

// Matches reports whether an order passes the filter. Store
// implementations without native filtering use it directly.
func (f Filter) Matches(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.Email != "" && o.ShippingAddress.Email != f.Email {
		return false
	}
	return true
}

// Store persists orders. Commit is the conditional-write primitive the
// lifecycle depends on: it applies the new state only if the stored
// version still equals expectedVersion, returning ErrConflict otherwise.
// Transitions on distinct orders must never block each other.
type Store interface {
	Insert(ctx context.Context, o *Order) error
	Find(ctx context.Context, orderNumber string) (*Order, bool, error)
	Commit(ctx context.Context, o *Order, expectedVersion int) error
	List(ctx context.Context, f Filter) ([]*Order, error)
}
