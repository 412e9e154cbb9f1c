package product

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

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	published := &capturePublisher{}
	agg := NewAggregate(store, published, zap.NewNop())

	err := agg.Handle(ctx, core.CreateProductCommand{
		ProductID: "product-1",
		Title:     "Keyboard",
		Price:     4999,
		Quantity:  10,
	})
	require.NoError(t, err)

	history, err := store.Load(ctx, "product-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	state := Replay(history)
	assert.Equal(t, "Keyboard", state.Title)
	assert.Equal(t, int32(10), state.QuantityOnHand)
	assert.True(t, state.Exists)

	require.Len(t, published.events, 1)
	assert.Equal(t, core.EventProductCreated, published.events[0].Type)
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregate(eventstore.NewMemoryStore(), &capturePublisher{}, zap.NewNop())

	err := agg.Handle(ctx, core.CreateProductCommand{ProductID: "product-1", Title: "Keyboard", Price: 0, Quantity: 10})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)

	err = agg.Handle(ctx, core.CreateProductCommand{ProductID: "product-1", Price: 100, Quantity: 10})
	require.ErrorAs(t, err, &verr)
}

func TestCreateProductRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregate(eventstore.NewMemoryStore(), &capturePublisher{}, zap.NewNop())

	cmd := core.CreateProductCommand{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 10}
	require.NoError(t, agg.Handle(ctx, cmd))

	err := agg.Handle(ctx, cmd)
	var cerr *core.ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestReserveProduct(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	agg := NewAggregate(store, &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, core.CreateProductCommand{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 10}))
	require.NoError(t, agg.Handle(ctx, core.ReserveProductCommand{OrderID: "order-1", ProductID: "product-1", UserID: "user-1", Quantity: 4}))

	history, err := store.Load(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, int32(6), Replay(history).QuantityOnHand)
}

func TestReserveProductInsufficientStock(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregate(eventstore.NewMemoryStore(), &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, core.CreateProductCommand{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 3}))

	err := agg.Handle(ctx, core.ReserveProductCommand{OrderID: "order-1", ProductID: "product-1", UserID: "user-1", Quantity: 4})

	var serr *core.InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, int32(4), serr.Requested)
	assert.Equal(t, int32(3), serr.Available)
}

func TestCancelReservationRestoresStock(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	agg := NewAggregate(store, &capturePublisher{}, zap.NewNop())

	require.NoError(t, agg.Handle(ctx, core.CreateProductCommand{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 10}))
	require.NoError(t, agg.Handle(ctx, core.ReserveProductCommand{OrderID: "order-1", ProductID: "product-1", UserID: "user-1", Quantity: 4}))
	require.NoError(t, agg.Handle(ctx, core.CancelProductReservationCommand{OrderID: "order-1", ProductID: "product-1", UserID: "user-1", Quantity: 4, Reason: "Payment Timeout"}))

	history, err := store.Load(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, int32(10), Replay(history).QuantityOnHand)
}
