package order

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	// Flat delivery fee, waived above the free-shipping threshold.
	// Both are frozen into the order at checkout.
	deliveryCharge        = 250
	freeDeliveryThreshold = 5000
)

// Service is the single authority over the order state machine. Every
// transition is a read-validate-commit cycle against the store's
// conditional write, so two writers racing on the same order serialize:
// the loser gets ErrConflict and must re-read before retrying.
type Service struct {
	store     Store
	publisher Publisher
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Create places a new order from a frozen cart snapshot. The catalog is
// never consulted again after this point.
func (s *Service) Create(ctx context.Context, items []OrderItem, addr ShippingAddress, method PaymentMethod) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %s has quantity %d", ErrValidation, item.ProductID, item.Quantity)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: item %s has negative price", ErrValidation, item.ProductID)
		}
	}
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}

	now := time.Now()
	var subtotal int
	for _, item := range items {
		subtotal += item.Price * item.Quantity
	}
	delivery := deliveryCharge
	if subtotal >= freeDeliveryThreshold {
		delivery = 0
	}

	o := &Order{
		OrderNumber:     NewOrderNumber(now),
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   method,
		Items:           items,
		ShippingAddress: addr,
		TotalAmount:     subtotal + delivery,
		DeliveryCharges: delivery,
		CreatedAt:       now,
		Version:         1,
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, err
	}

	s.publish(ctx, EventOrderPlaced, o.OrderNumber, OrderPlaced{
		OrderNumber: o.OrderNumber,
		Email:       addr.Email,
		FullName:    addr.FullName,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		Method:      string(method),
		PlacedAt:    now,
	})
	return o, nil
}

// Get returns the current state of an order.
func (s *Service) Get(ctx context.Context, orderNumber string) (*Order, error) {
	o, found, err := s.store.Find(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]*Order, error) {
	return s.store.List(ctx, f)
}

// TransitionStatus moves the fulfillment axis. Re-applying the current
// status is a no-op success.
func (s *Service) TransitionStatus(ctx context.Context, orderNumber string, target Status) (*Order, error) {
	o, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.Status == target {
		return o, nil
	}
	if !o.CanTransitionStatus(target) {
		return nil, o.statusTransitionError(target)
	}

	updated := o.Clone()
	updated.Status = target
	if err := s.store.Commit(ctx, updated, o.Version); err != nil {
		return nil, err
	}

	now := time.Now()
	if target == StatusCancelled {
		s.publish(ctx, EventOrderCancelled, orderNumber, OrderCancelled{
			OrderNumber: orderNumber,
			CancelledAt: now,
		})
	} else {
		s.publish(ctx, EventOrderStatusChanged, orderNumber, OrderStatusChanged{
			OrderNumber: orderNumber,
			From:        o.Status,
			To:          target,
			ChangedAt:   now,
		})
	}
	return updated, nil
}

// TransitionPayment moves the payment axis. The first transition into
// paid stamps PaymentVerifiedAt and emits PaymentVerified; a repeated
// paid is a no-op that neither re-stamps nor re-emits.
func (s *Service) TransitionPayment(ctx context.Context, orderNumber string, target PaymentStatus) (*Order, error) {
	o, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == target {
		return o, nil
	}
	if !o.CanTransitionPayment(target) {
		return nil, o.paymentTransitionError(target)
	}

	now := time.Now()
	updated := o.Clone()
	updated.PaymentStatus = target
	if target == PaymentPaid {
		updated.PaymentVerifiedAt = &now
	}
	if err := s.store.Commit(ctx, updated, o.Version); err != nil {
		return nil, err
	}

	switch target {
	case PaymentPaid:
		s.publish(ctx, EventPaymentVerified, orderNumber, PaymentVerified{
			OrderNumber: orderNumber,
			Email:       o.ShippingAddress.Email,
			FullName:    o.ShippingAddress.FullName,
			TotalAmount: o.TotalAmount,
			VerifiedAt:  now,
		})
	case PaymentFailed:
		s.publish(ctx, EventPaymentFailed, orderNumber, PaymentFailedEvent{
			OrderNumber: orderNumber,
			Email:       o.ShippingAddress.Email,
			FailedAt:    now,
		})
	}
	return updated, nil
}

// Cancel is the one transition allowed from any non-terminal fulfillment
// state. Cancelling an already-cancelled order is a no-op success.
func (s *Service) Cancel(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return o, nil
	}
	return s.TransitionStatus(ctx, orderNumber, StatusCancelled)
}

// AttachEvidence records a payment proof and advances the payment axis
// to awaiting_verification in a single commit. The screenshot is
// first-write-wins: a second submission is rejected, never overwritten.
func (s *Service) AttachEvidence(ctx context.Context, orderNumber, imageRef string, declared PaymentMethod) (*Order, error) {
	o, err := s.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: order %s", ErrOrderCancelled, orderNumber)
	}
	if o.PaymentScreenshot != "" {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadySubmitted, orderNumber)
	}
	if !o.PaymentMethod.RequiresEvidence() || declared != o.PaymentMethod {
		return nil, fmt.Errorf("%w: order uses %s, proof declared %s", ErrMethodMismatch, o.PaymentMethod, declared)
	}
	if !o.CanTransitionPayment(PaymentAwaitingVerification) {
		return nil, o.paymentTransitionError(PaymentAwaitingVerification)
	}

	now := time.Now()
	updated := o.Clone()
	updated.PaymentScreenshot = imageRef
	updated.PaymentScreenshotUploadedAt = &now
	updated.PaymentStatus = PaymentAwaitingVerification
	if err := s.store.Commit(ctx, updated, o.Version); err != nil {
		return nil, err
	}

	s.publish(ctx, EventPaymentEvidenceSubmitted, orderNumber, PaymentEvidenceSubmitted{
		OrderNumber: orderNumber,
		Method:      string(declared),
		ImageRef:    imageRef,
		SubmittedAt: now,
	})
	return updated, nil
}

// publish hands an event to the publisher after a successful commit.
// Failures are logged and never surfaced to the transition's caller.
func (s *Service) publish(ctx context.Context, eventType, orderNumber string, payload any) {
	if s.publisher == nil {
		return
	}
	event, err := newEvent(eventType, orderNumber, payload)
	if err != nil {
		log.Printf("[Order] Failed to encode %s event for %s: %v", eventType, orderNumber, err)
		return
	}
	if err := s.publisher.Publish(ctx, orderNumber, event); err != nil {
		log.Printf("[Order] Failed to publish %s event for %s: %v", eventType, orderNumber, err)
	}
}
