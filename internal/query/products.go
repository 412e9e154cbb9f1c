package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/internal/router"
)

type ProductView struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	QuantityOnHand int32  `json:"quantity_on_hand"`
}

// Products projects product events into a catalog view, fronted by Redis.
// Writes invalidate the cache key; reads go cache-first. A nil client keeps
// the projection fully in-process.
type Products struct {
	redisClient *redis.Client
	cacheTTL    time.Duration

	mu    sync.RWMutex
	views map[string]ProductView
}

func NewProducts(redisClient *redis.Client) *Products {
	return &Products{
		redisClient: redisClient,
		cacheTTL:    10 * time.Minute,
		views:       make(map[string]ProductView),
	}
}

func (p *Products) RegisterSubscriptions(r *router.Router) {
	r.Subscribe(core.EventProductCreated, p.onEvent)
	r.Subscribe(core.EventProductReserved, p.onEvent)
	r.Subscribe(core.EventProductReservationCancelled, p.onEvent)
}

func (p *Products) onEvent(ctx context.Context, ev eventstore.Event) {
	p.mu.Lock()

	var productID string
	switch payload := ev.Payload.(type) {
	case core.ProductCreatedEvent:
		productID = payload.ProductID
		p.views[productID] = ProductView{
			ProductID:      payload.ProductID,
			Title:          payload.Title,
			Price:          payload.Price,
			QuantityOnHand: payload.Quantity,
		}
	case core.ProductReservedEvent:
		productID = payload.ProductID
		view := p.views[productID]
		view.QuantityOnHand -= payload.Quantity
		p.views[productID] = view
	case core.ProductReservationCancelledEvent:
		productID = payload.ProductID
		view := p.views[productID]
		view.QuantityOnHand += payload.Quantity
		p.views[productID] = view
	}

	p.mu.Unlock()

	if productID != "" && p.redisClient != nil {
		p.redisClient.Del(ctx, cacheKey(productID))
	}
}

func (p *Products) FindByID(ctx context.Context, productID string) (ProductView, bool) {
	if p.redisClient != nil {
		val, err := p.redisClient.Get(ctx, cacheKey(productID)).Result()
		if err == nil {
			var view ProductView
			if err := json.Unmarshal([]byte(val), &view); err == nil {
				return view, true
			}
		}
	}

	p.mu.RLock()
	view, ok := p.views[productID]
	p.mu.RUnlock()

	if !ok {
		return ProductView{}, false
	}

	if p.redisClient != nil {
		if data, err := json.Marshal(view); err == nil {
			p.redisClient.Set(ctx, cacheKey(productID), data, p.cacheTTL)
		}
	}

	return view, true
}

func cacheKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}
