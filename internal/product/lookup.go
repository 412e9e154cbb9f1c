package product

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/internal/router"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

// LookupTable tracks product ids and titles already in use. The creation
// uniqueness rule spans aggregates (no two products may share an id or a
// title), so it is enforced on dispatch rather than inside a single
// aggregate's replayed state.
type LookupTable struct {
	logger *zap.Logger

	mu      sync.RWMutex
	byID    map[string]struct{}
	byTitle map[string]struct{}
}

func NewLookupTable(logger *zap.Logger) *LookupTable {
	return &LookupTable{
		logger:  logger,
		byID:    make(map[string]struct{}),
		byTitle: make(map[string]struct{}),
	}
}

// Interceptor vetoes CreateProduct commands that reuse an id or title.
func (t *LookupTable) Interceptor() router.DispatchInterceptor {
	return func(ctx context.Context, cmd core.Command) error {
		c, ok := cmd.(core.CreateProductCommand)
		if !ok {
			return nil
		}

		t.mu.RLock()
		_, idTaken := t.byID[c.ProductID]
		_, titleTaken := t.byTitle[c.Title]
		t.mu.RUnlock()

		if idTaken || titleTaken {
			mylogger.Warn(
				ctx,
				t.logger,
				"Create product rejected, duplicate id or title",
				zap.String("product_id", c.ProductID),
				zap.String("title", c.Title),
			)

			return &core.ConflictError{
				Message: fmt.Sprintf("product with productId %s or title %s already exists", c.ProductID, c.Title),
			}
		}

		return nil
	}
}

// RegisterSubscriptions feeds the table from committed ProductCreated events.
func (t *LookupTable) RegisterSubscriptions(r *router.Router) {
	r.Subscribe(core.EventProductCreated, func(_ context.Context, ev eventstore.Event) {
		payload, ok := ev.Payload.(core.ProductCreatedEvent)
		if !ok {
			return
		}

		t.mu.Lock()
		t.byID[payload.ProductID] = struct{}{}
		t.byTitle[payload.Title] = struct{}{}
		t.mu.Unlock()
	})
}
