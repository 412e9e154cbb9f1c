// Package product holds the event-sourced inventory ledger. State is derived
// solely by replaying the product's event stream; a reservation that would
// drive quantity on hand below zero is rejected before any event is emitted.
package product

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/aggregate"
	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
)

type State struct {
	ProductID      string
	Title          string
	Price          int64
	QuantityOnHand int32
	Exists         bool
}

func Replay(history []eventstore.Event) State {
	var state State
	for _, ev := range history {
		state = apply(state, ev)
	}

	return state
}

func apply(state State, ev eventstore.Event) State {
	switch payload := ev.Payload.(type) {
	case core.ProductCreatedEvent:
		state.ProductID = payload.ProductID
		state.Title = payload.Title
		state.Price = payload.Price
		state.QuantityOnHand = payload.Quantity
		state.Exists = true
	case core.ProductReservedEvent:
		state.QuantityOnHand -= payload.Quantity
	case core.ProductReservationCancelledEvent:
		state.QuantityOnHand += payload.Quantity
	}

	return state
}

func NewAggregate(store eventstore.Store, publisher aggregate.Publisher, logger *zap.Logger) *aggregate.Aggregate {
	return aggregate.New("product", store, publisher, decide, logger)
}

func decide(history []eventstore.Event, cmd core.Command) (core.EventPayload, error) {
	state := Replay(history)

	switch c := cmd.(type) {
	case core.CreateProductCommand:
		if c.Price <= 0 {
			return nil, core.NewValidationError("price", "price cannot be less than or equal to zero")
		}
		if c.Title == "" {
			return nil, core.NewValidationError("title", "title cannot be empty")
		}
		if state.Exists {
			return nil, &core.ConflictError{
				Message: fmt.Sprintf("product with productId %s already exists", c.ProductID),
			}
		}

		return core.ProductCreatedEvent{
			ProductID: c.ProductID,
			Title:     c.Title,
			Price:     c.Price,
			Quantity:  c.Quantity,
		}, nil

	case core.ReserveProductCommand:
		if state.QuantityOnHand < c.Quantity {
			return nil, &core.InsufficientStockError{
				ProductID: c.ProductID,
				Requested: c.Quantity,
				Available: state.QuantityOnHand,
			}
		}

		return core.ProductReservedEvent{
			OrderID:   c.OrderID,
			ProductID: c.ProductID,
			UserID:    c.UserID,
			Quantity:  c.Quantity,
		}, nil

	case core.CancelProductReservationCommand:
		// Compensation must not fail: the cancellation is recorded
		// unconditionally and restores the reserved quantity.
		return core.ProductReservationCancelledEvent{
			OrderID:   c.OrderID,
			ProductID: c.ProductID,
			UserID:    c.UserID,
			Quantity:  c.Quantity,
			Reason:    c.Reason,
		}, nil

	default:
		return nil, fmt.Errorf("product aggregate cannot handle command %s", cmd.Name())
	}
}
