package eventstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
)

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	committed, err := store.Append(ctx, "product-1", 0, []core.EventPayload{
		core.ProductCreatedEvent{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 10},
	})
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, int64(0), committed[0].Sequence)
	assert.Equal(t, core.EventProductCreated, committed[0].Type)

	committed, err = store.Append(ctx, "product-1", 1, []core.EventPayload{
		core.ProductReservedEvent{OrderID: "order-1", ProductID: "product-1", UserID: "user-1", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), committed[0].Sequence)

	history, err := store.Load(ctx, "product-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.EventProductCreated, history[0].Type)
	assert.Equal(t, core.EventProductReserved, history[1].Type)
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Append(ctx, "product-1", 0, []core.EventPayload{
		core.ProductCreatedEvent{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 10},
	})
	require.NoError(t, err)

	// A writer that loaded before the first append holds a stale version.
	_, err = store.Append(ctx, "product-1", 0, []core.EventPayload{
		core.ProductReservedEvent{OrderID: "order-1", ProductID: "product-1", UserID: "user-1", Quantity: 2},
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	history, err := store.Load(ctx, "product-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestMemoryStoreStreamsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Append(ctx, "product-1", 0, []core.EventPayload{
		core.ProductCreatedEvent{ProductID: "product-1", Title: "Keyboard", Price: 4999, Quantity: 10},
	})
	require.NoError(t, err)

	history, err := store.Load(ctx, "product-2")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Appending to an unrelated stream starts at version 0.
	_, err = store.Append(ctx, "product-2", 0, []core.EventPayload{
		core.ProductCreatedEvent{ProductID: "product-2", Title: "Mouse", Price: 1999, Quantity: 5},
	})
	require.NoError(t, err)
}
