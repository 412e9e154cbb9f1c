package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
)

func TestOrdersProjection(t *testing.T) {
	ctx := context.Background()
	orders := NewOrders(zap.NewNop())

	orders.onEvent(ctx, eventstore.Event{
		Type: core.EventOrderCreated,
		Payload: core.OrderCreatedEvent{
			OrderID:   "order-1",
			UserID:    "user-1",
			ProductID: "product-1",
			Quantity:  2,
			AddressID: "address-1",
			Status:    core.OrderStatusCreated,
		},
	})

	view, ok := orders.Get("order-1")
	require.True(t, ok)
	assert.Equal(t, core.OrderStatusCreated, view.Status)

	orders.onEvent(ctx, eventstore.Event{
		Type:    core.EventOrderRejected,
		Payload: core.OrderRejectedEvent{OrderID: "order-1", Reason: "Payment Timeout", Status: core.OrderStatusRejected},
	})

	view, ok = orders.Get("order-1")
	require.True(t, ok)
	assert.Equal(t, core.OrderStatusRejected, view.Status)
	assert.Equal(t, "Payment Timeout", view.Reason)
}

func TestWaitForOutcomeReturnsSummary(t *testing.T) {
	orders := NewOrders(zap.NewNop())

	go func() {
		time.Sleep(20 * time.Millisecond)
		orders.PublishOrderSummary(context.Background(), core.OrderSummary{
			OrderID: "order-1",
			Status:  core.OrderStatusApproved,
		})
	}()

	summary, err := orders.WaitForOutcome(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusApproved, summary.Status)
}

func TestWaitForOutcomeAfterPublish(t *testing.T) {
	orders := NewOrders(zap.NewNop())
	orders.PublishOrderSummary(context.Background(), core.OrderSummary{
		OrderID: "order-1",
		Status:  core.OrderStatusRejected,
		Message: "Payment Timeout",
	})

	summary, err := orders.WaitForOutcome(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "Payment Timeout", summary.Message)
}

func TestWaitForOutcomeTimesOut(t *testing.T) {
	orders := NewOrders(zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := orders.WaitForOutcome(ctx, "order-1")

	var terr *core.TimeoutError
	require.ErrorAs(t, err, &terr)
}
