package command

import (
	"context"
	"log"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/evidence"
)

// Handler is the command facade the HTTP layer calls. It owns nothing
// itself; every state change flows through the order lifecycle service.
type Handler struct {
	orders  *order.Service
	catalog *catalog.Service
	intake  *evidence.Intake
}

func NewHandler(orders *order.Service, catalogSvc *catalog.Service, intake *evidence.Intake) *Handler {
	return &Handler{
		orders:  orders,
		catalog: catalogSvc,
		intake:  intake,
	}
}

// PlaceOrder freezes the user's cart into an order and clears the cart.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	method, err := order.ParseMethod(cmd.PaymentMethod)
	if err != nil {
		return nil, err
	}

	lines, err := h.catalog.CartContents(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, order.ErrEmptyOrder
	}

	items := make([]order.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = order.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Image:     line.Image,
		}
	}

	o, err := h.orders.Create(ctx, items, cmd.ShippingAddress, method)
	if err != nil {
		return nil, err
	}

	// The order is placed; a cart that fails to clear is an annoyance,
	// not a reason to fail checkout.
	if err := h.catalog.ClearCart(ctx, cmd.UserID); err != nil {
		log.Printf("[Command] Failed to clear cart for user %s: %v", cmd.UserID, err)
	}
	return o, nil
}

// TransitionStatus applies a fulfillment-status change.
func (h *Handler) TransitionStatus(ctx context.Context, cmd TransitionStatus) (*order.Order, error) {
	status, err := order.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	return h.orders.TransitionStatus(ctx, cmd.OrderNumber, status)
}

// TransitionPayment applies a payment-status change.
func (h *Handler) TransitionPayment(ctx context.Context, cmd TransitionPayment) (*order.Order, error) {
	payment, err := order.ParsePaymentStatus(cmd.Payment)
	if err != nil {
		return nil, err
	}
	return h.orders.TransitionPayment(ctx, cmd.OrderNumber, payment)
}

// CancelOrder cancels an order.
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	return h.orders.Cancel(ctx, cmd.OrderNumber)
}

// SubmitPaymentEvidence runs the evidence intake for an order.
func (h *Handler) SubmitPaymentEvidence(ctx context.Context, cmd SubmitPaymentEvidence) (*order.Order, error) {
	return h.intake.Submit(ctx, cmd.OrderNumber, cmd.Image, cmd.ContentType, cmd.DeclaredMethod)
}
