package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/domain/order"
)

func TestDecodeEvent_RoundTrip(t *testing.T) {
	payload, err := json.Marshal(order.PaymentVerified{
		OrderNumber: "ORD-1",
		Email:       "buyer@example.com",
		TotalAmount: 1250,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(order.Event{
		ID:          "evt-1",
		Type:        order.EventPaymentVerified,
		OrderNumber: "ORD-1",
		Data:        payload,
		OccurredAt:  time.Now(),
	})
	require.NoError(t, err)

	event, err := decodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, order.EventPaymentVerified, event.Type)
	assert.Equal(t, "ORD-1", event.OrderNumber)

	var verified order.PaymentVerified
	require.NoError(t, json.Unmarshal(event.Data, &verified))
	assert.Equal(t, 1250, verified.TotalAmount)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, err := decodeEvent([]byte("{not json"))
	assert.Error(t, err)
}
