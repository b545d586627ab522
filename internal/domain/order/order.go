package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the fulfillment axis of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the payment-confirmation axis, independent of fulfillment.
type PaymentStatus string

const (
	PaymentPending              PaymentStatus = "pending"
	PaymentAwaitingVerification PaymentStatus = "awaiting_verification"
	PaymentPaid                 PaymentStatus = "paid"
	PaymentFailed               PaymentStatus = "failed"
)

// PaymentMethod is chosen at checkout and never changes afterwards.
type PaymentMethod string

const (
	MethodCOD          PaymentMethod = "cod"
	MethodCard         PaymentMethod = "card"
	MethodJazzCash     PaymentMethod = "jazzcash"
	MethodEasyPaisa    PaymentMethod = "easypaisa"
	MethodBankTransfer PaymentMethod = "bank-transfer"
	MethodPayFast      PaymentMethod = "payfast"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrValidation        = errors.New("invalid order input")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrOrderDelivered    = errors.New("order is already delivered")
	ErrEvidenceRequired  = errors.New("payment proof must be verified before marking paid")
	ErrAlreadySubmitted  = errors.New("payment proof already submitted")
	ErrMethodMismatch    = errors.New("payment method does not match the order")

	// Store errors. Implementations of Store return these so callers can
	// tell a lost race from a bad request. ErrConflict is the only error
	// a caller may retry by re-reading current state.
	ErrConflict             = errors.New("order was modified concurrently")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// statusRank orders the fulfillment stages. Transitions move strictly
// forward; skipping stages is allowed (an admin may mark a pending order
// delivered directly). Cancellation is handled separately.
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

// paymentTransitions is the single transition table for the payment axis.
// Per-method restrictions are layered on top in CanTransitionPayment.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:              {PaymentAwaitingVerification, PaymentPaid, PaymentFailed},
	PaymentAwaitingVerification: {PaymentPaid, PaymentFailed},
	PaymentPaid:                 {},
	PaymentFailed:               {},
}

// OrderItem is a snapshot of a catalog product taken at checkout.
// Prices in a placed order never change, even if the catalog does.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is one placed purchase. All mutation of Status, PaymentStatus and
// the payment proof fields goes through Service; nothing else writes them.
type Order struct {
	OrderNumber                 string          `json:"order_number"`
	Status                      Status          `json:"status"`
	PaymentStatus               PaymentStatus   `json:"payment_status"`
	PaymentMethod               PaymentMethod   `json:"payment_method"`
	PaymentScreenshot           string          `json:"payment_screenshot,omitempty"`
	PaymentScreenshotUploadedAt *time.Time      `json:"payment_screenshot_uploaded_at,omitempty"`
	PaymentVerifiedAt           *time.Time      `json:"payment_verified_at,omitempty"`
	Items                       []OrderItem     `json:"items"`
	ShippingAddress             ShippingAddress `json:"shipping_address"`
	TotalAmount                 int             `json:"total_amount"`
	DeliveryCharges             int             `json:"delivery_charges"`
	CreatedAt                   time.Time       `json:"created_at"`
	Version                     int             `json:"version"`
}

// Clone returns a deep copy so a transition can be prepared without
// touching the state read from the store.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.PaymentScreenshotUploadedAt != nil {
		t := *o.PaymentScreenshotUploadedAt
		c.PaymentScreenshotUploadedAt = &t
	}
	if o.PaymentVerifiedAt != nil {
		t := *o.PaymentVerifiedAt
		c.PaymentVerifiedAt = &t
	}
	return &c
}

// RequiresEvidence reports whether the method needs a customer-submitted
// payment proof before it can be marked paid.
func (m PaymentMethod) RequiresEvidence() bool {
	switch m {
	case MethodJazzCash, MethodEasyPaisa, MethodBankTransfer:
		return true
	}
	return false
}

// ParseMethod validates a checkout payment method string.
func ParseMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(s)); m {
	case MethodCOD, MethodCard, MethodJazzCash, MethodEasyPaisa, MethodBankTransfer, MethodPayFast:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
}

// ParseStatus validates a fulfillment status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(s)); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// ParsePaymentStatus validates a payment status string.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(strings.ToLower(s)); ps {
	case PaymentPending, PaymentAwaitingVerification, PaymentPaid, PaymentFailed:
		return ps, nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", ErrValidation, s)
}

// CanTransitionStatus reports whether the fulfillment axis may move to
// target. Same-state is not a transition; callers treat it as a no-op.
func (o *Order) CanTransitionStatus(target Status) bool {
	if o.Status == StatusCancelled {
		return false
	}
	if target == StatusCancelled {
		// Delivered orders can no longer be cancelled.
		return o.Status != StatusDelivered
	}
	cur, ok := statusRank[o.Status]
	next, ok2 := statusRank[target]
	if !ok || !ok2 {
		return false
	}
	return next > cur
}

// CanTransitionPayment reports whether the payment axis may move to target.
// A cancelled order admits no payment transitions at all.
func (o *Order) CanTransitionPayment(target PaymentStatus) bool {
	if o.Status == StatusCancelled {
		return false
	}
	if o.PaymentStatus == PaymentPending && target == PaymentPaid && o.PaymentMethod.RequiresEvidence() {
		// Manual-proof methods must pass through awaiting_verification.
		return false
	}
	for _, s := range paymentTransitions[o.PaymentStatus] {
		if s == target {
			return true
		}
	}
	return false
}

// statusTransitionError picks the most specific error for a rejected
// fulfillment transition.
func (o *Order) statusTransitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return fmt.Errorf("%w: order %s", ErrOrderCancelled, o.OrderNumber)
	case o.Status == StatusDelivered && target == StatusCancelled:
		return fmt.Errorf("%w: order %s", ErrOrderDelivered, o.OrderNumber)
	default:
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, o.Status, target)
	}
}

// paymentTransitionError picks the most specific error for a rejected
// payment transition.
func (o *Order) paymentTransitionError(target PaymentStatus) error {
	switch {
	case o.Status == StatusCancelled:
		return fmt.Errorf("%w: order %s", ErrOrderCancelled, o.OrderNumber)
	case o.PaymentStatus == PaymentPending && target == PaymentPaid && o.PaymentMethod.RequiresEvidence():
		return fmt.Errorf("%w: method %s", ErrEvidenceRequired, o.PaymentMethod)
	default:
		return fmt.Errorf("%w: cannot move payment from %s to %s", ErrInvalidTransition, o.PaymentStatus, target)
	}
}

// NewOrderNumber allocates a fresh human-referenceable order number.
// Uniqueness is ultimately enforced by the store's insert.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// ValidateAddress checks the required shipping fields.
func ValidateAddress(a ShippingAddress) error {
	required := []struct {
		field, value string
	}{
		{"full_name", a.FullName},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: missing shipping field %s", ErrValidation, f.field)
		}
	}
	if !strings.Contains(a.Email, "@") {
		return fmt.Errorf("%w: malformed email %q", ErrValidation, a.Email)
	}
	return nil
}
