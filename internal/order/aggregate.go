// Package order tracks the order lifecycle CREATED -> APPROVED | REJECTED.
// Terminal states are immutable: once approved or rejected, no further
// command changes the status.
package order

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/aggregate"
	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
)

// ErrOrderFinalized rejects a transition out of a terminal status.
var ErrOrderFinalized = errors.New("order already finalized")

type State struct {
	OrderID   string
	UserID    string
	ProductID string
	Quantity  int32
	AddressID string
	Status    core.OrderStatus
	Exists    bool
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
	case core.OrderCreatedEvent:
		state.OrderID = payload.OrderID
		state.UserID = payload.UserID
		state.ProductID = payload.ProductID
		state.Quantity = payload.Quantity
		state.AddressID = payload.AddressID
		state.Status = payload.Status
		state.Exists = true
	case core.OrderApprovedEvent:
		state.Status = payload.Status
	case core.OrderRejectedEvent:
		state.Status = payload.Status
	}

	return state
}

func NewAggregate(store eventstore.Store, publisher aggregate.Publisher, logger *zap.Logger) *aggregate.Aggregate {
	return aggregate.New("order", store, publisher, decide, logger)
}

func decide(history []eventstore.Event, cmd core.Command) (core.EventPayload, error) {
	state := Replay(history)

	switch c := cmd.(type) {
	case core.CreateOrderCommand:
		if state.Exists {
			return nil, &core.ConflictError{
				Message: fmt.Sprintf("order %s already exists", c.OrderID),
			}
		}

		return core.OrderCreatedEvent{
			OrderID:   c.OrderID,
			UserID:    c.UserID,
			ProductID: c.ProductID,
			Quantity:  c.Quantity,
			AddressID: c.AddressID,
			Status:    core.OrderStatusCreated,
		}, nil

	case core.ApproveOrderCommand:
		if !state.Exists {
			return nil, fmt.Errorf("order %s does not exist", c.OrderID)
		}
		if state.Status == core.OrderStatusApproved {
			// Redelivered approval of an already-approved order.
			return nil, nil
		}
		if state.Status == core.OrderStatusRejected {
			return nil, ErrOrderFinalized
		}

		return core.OrderApprovedEvent{
			OrderID: c.OrderID,
			Status:  core.OrderStatusApproved,
		}, nil

	case core.RejectOrderCommand:
		if !state.Exists {
			return nil, fmt.Errorf("order %s does not exist", c.OrderID)
		}
		if state.Status == core.OrderStatusRejected {
			return nil, nil
		}
		if state.Status == core.OrderStatusApproved {
			return nil, ErrOrderFinalized
		}

		return core.OrderRejectedEvent{
			OrderID: c.OrderID,
			Reason:  c.Reason,
			Status:  core.OrderStatusRejected,
		}, nil

	default:
		return nil, fmt.Errorf("order aggregate cannot handle command %s", cmd.Name())
	}
}
