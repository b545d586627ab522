package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/domain/order"
)

// MaxImageBytes bounds uploads before anything is persisted.
const MaxImageBytes = 5 << 20

var (
	ErrEmptyImage           = errors.New("payment proof image is empty")
	ErrImageTooLarge        = errors.New("payment proof image exceeds the size limit")
	ErrUnsupportedImageType = errors.New("payment proof must be a JPEG, PNG or WebP image")
)

// allowedImageTypes is the accepted upload allow-list.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// declaredMethods maps the method name a customer submits with their
// proof onto the stored checkout method.
var declaredMethods = map[string]order.PaymentMethod{
	"bank":          order.MethodBankTransfer,
	"bank-transfer": order.MethodBankTransfer,
	"jazzcash":      order.MethodJazzCash,
	"easypaisa":     order.MethodEasyPaisa,
}

// BlobStore persists image bytes and returns an opaque reference.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

// Intake accepts one proof-of-payment image per order. The guards run
// before anything touches storage or order state; the single-submission
// rule itself is enforced inside the lifecycle commit.
type Intake struct {
	blobs  BlobStore
	orders *order.Service
}

func NewIntake(blobs BlobStore, orders *order.Service) *Intake {
	return &Intake{blobs: blobs, orders: orders}
}

// Submit validates the upload, stores the image and attaches it to the
// order, advancing the payment status to awaiting_verification.
func (i *Intake) Submit(ctx context.Context, orderNumber string, data []byte, contentType, declaredMethod string) (*order.Order, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedImageType, contentType)
	}

	method, ok := declaredMethods[declaredMethod]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a manual-proof method", order.ErrMethodMismatch, declaredMethod)
	}

	ref, err := i.blobs.Store(ctx, data, contentType)
	if err != nil {
		return nil, err
	}
	return i.orders.AttachEvidence(ctx, orderNumber, ref, method)
}
