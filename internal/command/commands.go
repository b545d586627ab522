package command

import "github.com/example/storefront/internal/domain/order"

// PlaceOrder checks out the user's current cart.
type PlaceOrder struct {
	UserID          string                `json:"-"`
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
}

// TransitionStatus moves an order's fulfillment status (admin).
type TransitionStatus struct {
	OrderNumber string `json:"-"`
	Status      string `json:"status"`
}

// TransitionPayment moves an order's payment status (admin).
type TransitionPayment struct {
	OrderNumber string `json:"-"`
	Payment     string `json:"payment_status"`
}

// CancelOrder cancels an order from any non-terminal state.
type CancelOrder struct {
	OrderNumber string `json:"-"`
}

// SubmitPaymentEvidence attaches a proof-of-payment image to an order.
type SubmitPaymentEvidence struct {
	OrderNumber    string
	Image          []byte
	ContentType    string
	DeclaredMethod string
}
