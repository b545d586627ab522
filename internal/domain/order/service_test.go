package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
)

// mockPublisher records published events for assertions.
type mockPublisher struct {
	mu     sync.Mutex
	events []order.Event
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, key string, event order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *mockPublisher) ofType(eventType string) []order.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []order.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testAddress() order.ShippingAddress {
	return order.ShippingAddress{
		FullName: "Ayesha Khan",
		Email:    "ayesha@example.com",
		Phone:    "+92-300-1234567",
		Address:  "12 Mall Road",
		City:     "Lahore",
		Country:  "PK",
	}
}

func testItems() []order.OrderItem {
	return []order.OrderItem{
		{ProductID: "p1", Name: "Mug", Price: 500, Quantity: 2},
		{ProductID: "p2", Name: "Shirt", Price: 1500, Quantity: 1},
	}
}

func newTestService(t *testing.T) (*order.Service, *mocks.MockOrderStore, *mockPublisher) {
	t.Helper()
	mockStore := mocks.NewMockOrderStore()
	publisher := &mockPublisher{}
	return order.NewService(mockStore, publisher), mockStore, publisher
}

func placeOrder(t *testing.T, svc *order.Service, method order.PaymentMethod) *order.Order {
	t.Helper()
	o, err := svc.Create(context.Background(), testItems(), testAddress(), method)
	require.NoError(t, err)
	return o
}

// Creation

func TestCreate_Success(t *testing.T) {
	svc, mockStore, publisher := newTestService(t)

	o := placeOrder(t, svc, order.MethodCOD)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, 1, o.Version)
	assert.Nil(t, o.PaymentVerifiedAt)
	// 2500 subtotal is under the free-delivery threshold
	assert.Equal(t, 250, o.DeliveryCharges)
	assert.Equal(t, 2750, o.TotalAmount)

	require.Len(t, mockStore.InsertCalls, 1)
	placed := publisher.ofType(order.EventOrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, o.OrderNumber, placed[0].OrderNumber)
}

func TestCreate_FreeDeliveryAboveThreshold(t *testing.T) {
	svc, _, _ := newTestService(t)

	items := []order.OrderItem{{ProductID: "p1", Name: "Sofa", Price: 6000, Quantity: 1}}
	o, err := svc.Create(context.Background(), items, testAddress(), order.MethodCard)
	require.NoError(t, err)

	assert.Equal(t, 0, o.DeliveryCharges)
	assert.Equal(t, 6000, o.TotalAmount)
}

func TestCreate_Invalid(t *testing.T) {
	svc, _, publisher := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, testAddress(), order.MethodCOD)
	assert.ErrorIs(t, err, order.ErrEmptyOrder)

	items := testItems()
	items[0].Quantity = 0
	_, err = svc.Create(ctx, items, testAddress(), order.MethodCOD)
	assert.ErrorIs(t, err, order.ErrValidation)

	addr := testAddress()
	addr.Email = ""
	_, err = svc.Create(ctx, testItems(), addr, order.MethodCOD)
	assert.ErrorIs(t, err, order.ErrValidation)

	_, err = svc.Create(ctx, testItems(), testAddress(), order.PaymentMethod("bitcoin"))
	assert.ErrorIs(t, err, order.ErrValidation)

	assert.Empty(t, publisher.events)
}

func TestCreate_InsertFailureDoesNotPublish(t *testing.T) {
	svc, mockStore, publisher := newTestService(t)
	mockStore.InsertErr = errors.New("db down")

	_, err := svc.Create(context.Background(), testItems(), testAddress(), order.MethodCOD)
	require.Error(t, err)
	assert.Empty(t, publisher.events)
}

// Fulfillment transitions

func TestTransitionStatus_ForwardAndSkip(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	ctx := context.Background()

	updated, err := svc.TransitionStatus(ctx, o.OrderNumber, order.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, updated.Status)
	assert.Equal(t, 2, updated.Version)

	// Skipping shipped is allowed
	updated, err = svc.TransitionStatus(ctx, o.OrderNumber, order.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, updated.Status)
	assert.Equal(t, 3, updated.Version)

	assert.Len(t, publisher.ofType(order.EventOrderStatusChanged), 2)
}

func TestTransitionStatus_SameStateIsNoOp(t *testing.T) {
	svc, mockStore, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)

	updated, err := svc.TransitionStatus(context.Background(), o.OrderNumber, order.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)

	// No commit and no event for a no-op
	assert.Empty(t, mockStore.CommitCalls)
	assert.Empty(t, publisher.ofType(order.EventOrderStatusChanged))
}

func TestTransitionStatus_Backward(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	ctx := context.Background()

	_, err := svc.TransitionStatus(ctx, o.OrderNumber, order.StatusShipped)
	require.NoError(t, err)

	_, err = svc.TransitionStatus(ctx, o.OrderNumber, order.StatusProcessing)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestTransitionStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.TransitionStatus(context.Background(), "ORD-20250101-MISSING1", order.StatusProcessing)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// Cancellation

func TestCancel_LocksBothAxes(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	ctx := context.Background()

	cancelled, err := svc.Cancel(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Len(t, publisher.ofType(order.EventOrderCancelled), 1)

	_, err = svc.TransitionStatus(ctx, o.OrderNumber, order.StatusProcessing)
	assert.ErrorIs(t, err, order.ErrOrderCancelled)

	_, err = svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentPaid)
	assert.ErrorIs(t, err, order.ErrOrderCancelled)
}

func TestCancel_Idempotent(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, o.OrderNumber)
	require.NoError(t, err)

	again, err := svc.Cancel(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, again.Status)

	// Second cancel is a no-op and publishes nothing
	assert.Len(t, publisher.ofType(order.EventOrderCancelled), 1)
}

func TestCancel_DeliveredRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	ctx := context.Background()

	_, err := svc.TransitionStatus(ctx, o.OrderNumber, order.StatusDelivered)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, o.OrderNumber)
	assert.ErrorIs(t, err, order.ErrOrderDelivered)
}

// Payment transitions

func TestTransitionPayment_CODDirectPaid(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)

	updated, err := svc.TransitionPayment(context.Background(), o.OrderNumber, order.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, updated.PaymentStatus)
	require.NotNil(t, updated.PaymentVerifiedAt)
	assert.Len(t, publisher.ofType(order.EventPaymentVerified), 1)
}

func TestTransitionPayment_ManualMethodNeedsEvidence(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := placeOrder(t, svc, order.MethodJazzCash)

	_, err := svc.TransitionPayment(context.Background(), o.OrderNumber, order.PaymentPaid)
	assert.ErrorIs(t, err, order.ErrEvidenceRequired)
}

func TestTransitionPayment_ManualMethodAfterEvidence(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodJazzCash)
	ctx := context.Background()

	_, err := svc.AttachEvidence(ctx, o.OrderNumber, "proof.jpg", order.MethodJazzCash)
	require.NoError(t, err)

	updated, err := svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, updated.PaymentStatus)
	require.NotNil(t, updated.PaymentVerifiedAt)
	assert.Len(t, publisher.ofType(order.EventPaymentVerified), 1)
}

func TestTransitionPayment_RepeatedPaidIsNoOp(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	ctx := context.Background()

	first, err := svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentPaid)
	require.NoError(t, err)
	require.NotNil(t, first.PaymentVerifiedAt)

	second, err := svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentPaid)
	require.NoError(t, err)

	// Re-applying paid neither re-stamps nor re-emits
	assert.Equal(t, *first.PaymentVerifiedAt, *second.PaymentVerifiedAt)
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, publisher.ofType(order.EventPaymentVerified), 1)
}

func TestTransitionPayment_FailedIsTerminal(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodEasyPaisa)
	ctx := context.Background()

	_, err := svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentFailed)
	require.NoError(t, err)
	assert.Len(t, publisher.ofType(order.EventPaymentFailed), 1)

	_, err = svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentPaid)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

// Payment evidence

func TestAttachEvidence_Success(t *testing.T) {
	svc, _, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodBankTransfer)

	updated, err := svc.AttachEvidence(context.Background(), o.OrderNumber, "uploads/abc.png", order.MethodBankTransfer)
	require.NoError(t, err)

	assert.Equal(t, order.PaymentAwaitingVerification, updated.PaymentStatus)
	assert.Equal(t, "uploads/abc.png", updated.PaymentScreenshot)
	require.NotNil(t, updated.PaymentScreenshotUploadedAt)
	assert.Len(t, publisher.ofType(order.EventPaymentEvidenceSubmitted), 1)
}

func TestAttachEvidence_FirstWriteWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := placeOrder(t, svc, order.MethodJazzCash)
	ctx := context.Background()

	_, err := svc.AttachEvidence(ctx, o.OrderNumber, "first.jpg", order.MethodJazzCash)
	require.NoError(t, err)

	_, err = svc.AttachEvidence(ctx, o.OrderNumber, "second.jpg", order.MethodJazzCash)
	assert.ErrorIs(t, err, order.ErrAlreadySubmitted)

	current, err := svc.Get(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "first.jpg", current.PaymentScreenshot)
}

func TestAttachEvidence_MethodMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	jazz := placeOrder(t, svc, order.MethodJazzCash)
	_, err := svc.AttachEvidence(ctx, jazz.OrderNumber, "proof.jpg", order.MethodEasyPaisa)
	assert.ErrorIs(t, err, order.ErrMethodMismatch)

	// COD never takes payment proof
	cod := placeOrder(t, svc, order.MethodCOD)
	_, err = svc.AttachEvidence(ctx, cod.OrderNumber, "proof.jpg", order.MethodCOD)
	assert.ErrorIs(t, err, order.ErrMethodMismatch)
}

func TestAttachEvidence_CancelledOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := placeOrder(t, svc, order.MethodJazzCash)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, o.OrderNumber)
	require.NoError(t, err)

	_, err = svc.AttachEvidence(ctx, o.OrderNumber, "proof.jpg", order.MethodJazzCash)
	assert.ErrorIs(t, err, order.ErrOrderCancelled)
}

func TestCancelAfterEvidence_BlocksVerification(t *testing.T) {
	svc, _, _ := newTestService(t)
	o := placeOrder(t, svc, order.MethodBankTransfer)
	ctx := context.Background()

	_, err := svc.AttachEvidence(ctx, o.OrderNumber, "proof.png", order.MethodBankTransfer)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, o.OrderNumber)
	require.NoError(t, err)

	_, err = svc.TransitionPayment(ctx, o.OrderNumber, order.PaymentPaid)
	assert.ErrorIs(t, err, order.ErrOrderCancelled)
}

// Concurrency

func TestTransitionPayment_ConcurrentVerifiesOnce(t *testing.T) {
	// Many admins race to mark the same order paid: each call either
	// wins, observes paid and no-ops, or loses the conditional write.
	// Exactly one PaymentVerified event may come out.
	publisher := &mockPublisher{}
	svc := order.NewService(store.NewMemoryOrderStore(), publisher)
	o := placeOrder(t, svc, order.MethodCOD)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TransitionPayment(context.Background(), o.OrderNumber, order.PaymentPaid)
			if err != nil {
				assert.ErrorIs(t, err, order.ErrConflict)
			}
		}()
	}
	wg.Wait()

	final, err := svc.Get(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, final.PaymentStatus)
	require.NotNil(t, final.PaymentVerifiedAt)
	assert.Len(t, publisher.ofType(order.EventPaymentVerified), 1)
}

func TestTransitionStatus_ConcurrentDistinctTargets(t *testing.T) {
	// Cancel races a processing transition. Whatever interleaving wins,
	// the order never ends up cancelled-then-progressed.
	svc := order.NewService(store.NewMemoryOrderStore(), &mockPublisher{})
	o := placeOrder(t, svc, order.MethodCOD)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.Cancel(context.Background(), o.OrderNumber)
	}()
	go func() {
		defer wg.Done()
		svc.TransitionStatus(context.Background(), o.OrderNumber, order.StatusProcessing)
	}()
	wg.Wait()

	final, err := svc.Get(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Contains(t, []order.Status{order.StatusCancelled, order.StatusProcessing}, final.Status)
}

// Publishing semantics

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("broker down")}
	svc := order.NewService(store.NewMemoryOrderStore(), publisher)

	o, err := svc.Create(context.Background(), testItems(), testAddress(), order.MethodCOD)
	require.NoError(t, err)

	updated, err := svc.TransitionStatus(context.Background(), o.OrderNumber, order.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, updated.Status)
}

func TestCommitConflictSurfaces(t *testing.T) {
	svc, mockStore, publisher := newTestService(t)
	o := placeOrder(t, svc, order.MethodCOD)
	mockStore.CommitErr = order.ErrConflict

	_, err := svc.TransitionStatus(context.Background(), o.OrderNumber, order.StatusProcessing)
	assert.ErrorIs(t, err, order.ErrConflict)
	assert.Empty(t, publisher.ofType(order.EventOrderStatusChanged))
}
