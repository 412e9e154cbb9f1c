package order

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventstore.Event
}

func (p *capturePublisher) Publish(_ context.Context, events []eventstore.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, events...)
}

func createOrder() core.CreateOrderCommand {
	return core.CreateOrderCommand{
		OrderID:   "order-1",
		UserID:    "user-1",
		ProductID: "product-1",
		Quantity:  2,
		AddressID: "address-1",
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	agg := NewAggregate(store, &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, createOrder()))

	history, err := store.Load(ctx, "order-1")
	require.NoError(t, err)

	state := Replay(history)
	assert.Equal(t, core.OrderStatusCreated, state.Status)
	assert.Equal(t, "user-1", state.UserID)
	assert.True(t, state.Exists)
}

func TestCreateOrderRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregate(eventstore.NewMemoryStore(), &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, createOrder()))

	err := agg.Handle(ctx, createOrder())
	var cerr *core.ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestApproveOrder(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	agg := NewAggregate(store, &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, createOrder()))
	require.NoError(t, agg.Handle(ctx, core.ApproveOrderCommand{OrderID: "order-1"}))

	history, err := store.Load(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusApproved, Replay(history).Status)
}

func TestApproveMissingOrder(t *testing.T) {
	agg := NewAggregate(eventstore.NewMemoryStore(), &capturePublisher{}, zap.NewNop())

	err := agg.Handle(context.Background(), core.ApproveOrderCommand{OrderID: "order-1"})
	require.Error(t, err)
}

func TestTerminalStatusIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	agg := NewAggregate(store, &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, createOrder()))
	require.NoError(t, agg.Handle(ctx, core.ApproveOrderCommand{OrderID: "order-1"}))

	// Redelivered approval is absorbed without a second event.
	require.NoError(t, agg.Handle(ctx, core.ApproveOrderCommand{OrderID: "order-1"}))

	// Crossing terminal states is refused.
	err := agg.Handle(ctx, core.RejectOrderCommand{OrderID: "order-1", Reason: "ops"})
	require.ErrorIs(t, err, ErrOrderFinalized)

	history, err := store.Load(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.OrderStatusApproved, Replay(history).Status)
}

func TestRejectOrder(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	agg := NewAggregate(store, &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, createOrder()))
	require.NoError(t, agg.Handle(ctx, core.RejectOrderCommand{OrderID: "order-1", Reason: "Payment Timeout"}))

	// Redelivered rejection is a no-op; approval after rejection is refused.
	require.NoError(t, agg.Handle(ctx, core.RejectOrderCommand{OrderID: "order-1", Reason: "Payment Timeout"}))
	err := agg.Handle(ctx, core.ApproveOrderCommand{OrderID: "order-1"})
	require.ErrorIs(t, err, ErrOrderFinalized)

	history, err := store.Load(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	rejected, ok := history[1].Payload.(core.OrderRejectedEvent)
	require.True(t, ok)
	assert.Equal(t, "Payment Timeout", rejected.Reason)
}
