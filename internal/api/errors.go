package api

import (
	"errors"
	"net/http"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/evidence"
)

// statusForError maps the error taxonomy onto HTTP status codes. The
// granularity is deliberate: the storefront shows a different message
// for "already submitted" than for "not allowed".
func statusForError(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrValidation),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, evidence.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, evidence.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, evidence.ErrUnsupportedImageType),
		errors.Is(err, order.ErrMethodMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrEvidenceRequired),
		errors.Is(err, order.ErrAlreadySubmitted),
		errors.Is(err, order.ErrDuplicateOrderNumber):
		return http.StatusConflict
	case errors.Is(err, order.ErrConflict):
		// The only retryable kind: the client should re-read and reapply.
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
