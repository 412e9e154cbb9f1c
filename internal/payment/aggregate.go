// Package payment records payment attempts against orders. A payment record
// exists only once a PaymentProcessed event is on the stream.
package payment

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/aggregate"
	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
)

type State struct {
	PaymentID string
	OrderID   string
	Processed bool
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
	case core.PaymentProcessedEvent:
		state.PaymentID = payload.PaymentID
		state.OrderID = payload.OrderID
		state.Processed = true
	}

	return state
}

func NewAggregate(store eventstore.Store, publisher aggregate.Publisher, logger *zap.Logger) *aggregate.Aggregate {
	return aggregate.New("payment", store, publisher, decide, logger)
}

func decide(history []eventstore.Event, cmd core.Command) (core.EventPayload, error) {
	state := Replay(history)

	switch c := cmd.(type) {
	case core.ProcessPaymentCommand:
		if c.PaymentDetails == nil {
			return nil, core.NewValidationError("paymentdetails", "missing payment details")
		}
		if c.OrderID == "" {
			return nil, core.NewValidationError("orderid", "missing order id")
		}
		if c.PaymentID == "" {
			return nil, core.NewValidationError("paymentid", "missing payment id")
		}

		// The saga derives the payment id from the order id, so a
		// redelivered command lands on the same stream and is absorbed
		// here instead of double-charging.
		if state.Processed {
			return nil, nil
		}

		return core.PaymentProcessedEvent{
			OrderID:   c.OrderID,
			PaymentID: c.PaymentID,
		}, nil

	default:
		return nil, fmt.Errorf("payment aggregate cannot handle command %s", cmd.Name())
	}
}
