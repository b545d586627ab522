package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderPlaced              = "OrderPlaced"
	EventOrderStatusChanged       = "OrderStatusChanged"
	EventPaymentEvidenceSubmitted = "PaymentEvidenceSubmitted"
	EventPaymentVerified          = "PaymentVerified"
	EventPaymentFailed            = "PaymentFailed"
	EventOrderCancelled           = "OrderCancelled"
)

// Event is the envelope published after a successful state commit.
// Payloads are denormalized so consumers never have to read back into
// the order store.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	OrderNumber string          `json:"order_number"`
	Data        json.RawMessage `json:"data"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers. Delivery failures
// must never affect the transition that produced the event.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type OrderPlaced struct {
	OrderNumber string      `json:"order_number"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Items       []OrderItem `json:"items"`
	TotalAmount int         `json:"total_amount"`
	Method      string      `json:"method"`
	PlacedAt    time.Time   `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderNumber string    `json:"order_number"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	ChangedAt   time.Time `json:"changed_at"`
}

type PaymentEvidenceSubmitted struct {
	OrderNumber string    `json:"order_number"`
	Method      string    `json:"method"`
	ImageRef    string    `json:"image_ref"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type PaymentVerified struct {
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	TotalAmount int       `json:"total_amount"`
	VerifiedAt  time.Time `json:"verified_at"`
}

type PaymentFailedEvent struct {
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	FailedAt    time.Time `json:"failed_at"`
}

type OrderCancelled struct {
	OrderNumber string    `json:"order_number"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func newEvent(eventType, orderNumber string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		OrderNumber: orderNumber,
		Data:        data,
		OccurredAt:  time.Now(),
	}, nil
}
