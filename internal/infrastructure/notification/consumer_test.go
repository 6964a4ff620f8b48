package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/fastorder/internal/domain/notification"
)

func TestRender(t *testing.T) {
	refund := notification.Event{Type: notification.EventOrderRefunded, OrderNo: "ORD1", RefundAmount: 905}
	msg, err := Render(refund)
	require.NoError(t, err)
	assert.Equal(t, "订单已取消并退款", msg.Subject)
	assert.Contains(t, msg.Body, "9.05元")

	created := notification.Event{Type: notification.EventOrderCreated, OrderNo: "ORD2", TotalPrice: 10000}
	msg, err = Render(created)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "100.00元")
	assert.Contains(t, msg.Body, "90%")

	receipt := notification.Event{
		Type:       notification.EventPaymentReceipt,
		OrderNo:    "ORD3",
		PaymentNo:  "PAY1",
		TotalPrice: 1,
		OccurredAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}
	msg, err = Render(receipt)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "PAY1")
	assert.Contains(t, msg.Body, "0.01元")
	assert.Contains(t, msg.Body, "2024-06-01 09:30:00")

	_, err = Render(notification.Event{Type: "order.shipped"})
	assert.Error(t, err)
}

func TestHandleEvent_NeverRequeues(t *testing.T) {
	ctx := context.Background()

	body, err := json.Marshal(notification.Event{Type: notification.EventOrderAccepted, OrderNo: "ORD1"})
	require.NoError(t, err)
	assert.NoError(t, HandleEvent(ctx, "order.accepted", body))

	assert.NoError(t, HandleEvent(ctx, "order.accepted", []byte("{not json")))
	assert.NoError(t, HandleEvent(ctx, "order.unknown", []byte(`{"type":"order.unknown"}`)))
}
