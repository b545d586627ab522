package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
)

// Sender is the slice of the email service the notifier needs.
type Sender interface {
	SendOrderConfirmation(to, name, orderNumber string, total int, items []email.LineItem) error
	SendPaymentVerified(to, name, orderNumber string, total int) error
}

// Handler turns order lifecycle events into customer email. It runs
// detached from the API: nothing here can block or roll back a
// transition, and it only sees first-occurrence transitions because
// no-op re-applications are never published.
type Handler struct {
	sender Sender
}

func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes one decoded event from the consumer.
func (h *Handler) HandleEvent(ctx context.Context, event order.Event) error {
	switch event.Type {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case order.EventPaymentVerified:
		return h.handlePaymentVerified(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	items := make([]email.LineItem, len(e.Items))
	for i, item := range e.Items {
		items[i] = email.LineItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}

	if err := h.sender.SendOrderConfirmation(e.Email, e.FullName, e.OrderNumber, e.TotalAmount, items); err != nil {
		log.Printf("[Notifier] Failed to send confirmation to %s for %s: %v", e.Email, e.OrderNumber, err)
		return err
	}
	log.Printf("[Notifier] Order confirmation sent to %s for %s", e.Email, e.OrderNumber)
	return nil
}

func (h *Handler) handlePaymentVerified(event order.Event) error {
	var e order.PaymentVerified
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal PaymentVerified event: %v", err)
		return err
	}

	if err := h.sender.SendPaymentVerified(e.Email, e.FullName, e.OrderNumber, e.TotalAmount); err != nil {
		log.Printf("[Notifier] Failed to send payment email to %s for %s: %v", e.Email, e.OrderNumber, err)
		return err
	}
	log.Printf("[Notifier] Payment verified email sent to %s for %s", e.Email, e.OrderNumber)
	return nil
}
