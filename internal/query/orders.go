// Package query holds the read models projected from committed events. They
// answer lookups without replaying streams and let a caller block for the
// terminal outcome of an order.
package query

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/internal/router"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

type OrderView struct {
	OrderID   string
	UserID    string
	ProductID string
	Quantity  int32
	AddressID string
	Status    core.OrderStatus
	Reason    string
}

// Orders projects order events into per-order views and fans terminal
// summaries out to waiters. It is the saga's summary sink.
type Orders struct {
	logger *zap.Logger

	mu        sync.Mutex
	views     map[string]OrderView
	summaries map[string]core.OrderSummary
	waiters   map[string][]chan core.OrderSummary
}

func NewOrders(logger *zap.Logger) *Orders {
	return &Orders{
		logger:    logger,
		views:     make(map[string]OrderView),
		summaries: make(map[string]core.OrderSummary),
		waiters:   make(map[string][]chan core.OrderSummary),
	}
}

func (o *Orders) RegisterSubscriptions(r *router.Router) {
	r.Subscribe(core.EventOrderCreated, o.onEvent)
	r.Subscribe(core.EventOrderApproved, o.onEvent)
	r.Subscribe(core.EventOrderRejected, o.onEvent)
}

func (o *Orders) onEvent(_ context.Context, ev eventstore.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch payload := ev.Payload.(type) {
	case core.OrderCreatedEvent:
		o.views[payload.OrderID] = OrderView{
			OrderID:   payload.OrderID,
			UserID:    payload.UserID,
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			AddressID: payload.AddressID,
			Status:    payload.Status,
		}
	case core.OrderApprovedEvent:
		view := o.views[payload.OrderID]
		view.OrderID = payload.OrderID
		view.Status = payload.Status
		o.views[payload.OrderID] = view
	case core.OrderRejectedEvent:
		view := o.views[payload.OrderID]
		view.OrderID = payload.OrderID
		view.Status = payload.Status
		view.Reason = payload.Reason
		o.views[payload.OrderID] = view
	}
}

func (o *Orders) Get(orderID string) (OrderView, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	view, ok := o.views[orderID]
	return view, ok
}

// PublishOrderSummary records the terminal outcome and wakes every waiter.
func (o *Orders) PublishOrderSummary(ctx context.Context, summary core.OrderSummary) {
	o.mu.Lock()
	o.summaries[summary.OrderID] = summary
	waiters := o.waiters[summary.OrderID]
	delete(o.waiters, summary.OrderID)
	o.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- summary
	}

	mylogger.Info(
		ctx,
		o.logger,
		"Order summary published",
		zap.String("order_id", summary.OrderID),
		zap.String("status", string(summary.Status)),
	)
}

// WaitForOutcome blocks until the order reaches a terminal status or the
// context expires. A summary that arrived before the call returns at once.
func (o *Orders) WaitForOutcome(ctx context.Context, orderID string) (core.OrderSummary, error) {
	o.mu.Lock()
	if summary, ok := o.summaries[orderID]; ok {
		o.mu.Unlock()
		return summary, nil
	}

	waiter := make(chan core.OrderSummary, 1)
	o.waiters[orderID] = append(o.waiters[orderID], waiter)
	o.mu.Unlock()

	select {
	case summary := <-waiter:
		return summary, nil
	case <-ctx.Done():
		o.removeWaiter(orderID, waiter)

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return core.OrderSummary{}, &core.TimeoutError{Operation: "order outcome wait"}
		}

		return core.OrderSummary{}, ctx.Err()
	}
}

func (o *Orders) removeWaiter(orderID string, waiter chan core.OrderSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	waiters := o.waiters[orderID]
	for i, w := range waiters {
		if w == waiter {
			o.waiters[orderID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
}
