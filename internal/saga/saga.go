// Package saga orchestrates an order through reservation, payment and
// settlement. The decision logic is a pure transition function over a
// closed set of inbound messages; the manager owns instances, executes the
// returned effects and feeds results back into the same ordered inbox.
package saga

import "github.com/Athul-Krishna/ProjectTransac/internal/core"

type LifecycleState string

const (
	StateAwaitingReservation LifecycleState = "AWAITING_RESERVATION"
	StateAwaitingPayment     LifecycleState = "AWAITING_PAYMENT"
	StateAwaitingApproval    LifecycleState = "AWAITING_APPROVAL"
	StateCompensating        LifecycleState = "COMPENSATING"
	StateCompleted           LifecycleState = "COMPLETED"
)

// ReasonPaymentTimeout is the rejection reason when the payment deadline
// elapses before a payment result arrives.
const ReasonPaymentTimeout = "Payment Timeout"

// Instance is the persisted state of one saga, keyed by order id. Exactly
// one live instance exists per order at a time.
type Instance struct {
	OrderID       string
	UserID        string
	ProductID     string
	Quantity      int32
	AddressID     string
	State         LifecycleState
	DeadlineArmed bool
}

type MessageKind string

const (
	// Domain events delivered by the router.
	MsgOrderCreated         MessageKind = "OrderCreated"
	MsgProductReserved      MessageKind = "ProductReserved"
	MsgReservationCancelled MessageKind = "ProductReservationCancelled"
	MsgPaymentProcessed     MessageKind = "PaymentProcessed"
	MsgOrderApproved        MessageKind = "OrderApproved"
	MsgOrderRejected        MessageKind = "OrderRejected"

	// Synthetic results fed back by the manager.
	MsgReservationFailed         MessageKind = "ReservationFailed"
	MsgPaymentDetailsFetched     MessageKind = "PaymentDetailsFetched"
	MsgPaymentDetailsUnavailable MessageKind = "PaymentDetailsUnavailable"
	MsgPaymentFailed             MessageKind = "PaymentFailed"
	MsgPaymentDeadlineElapsed    MessageKind = "PaymentDeadlineElapsed"
)

// Message is one inbound trigger for a saga instance. Order is whatever the
// router delivered; the transition table ignores anything that does not
// match the instance's current state.
type Message struct {
	Kind    MessageKind
	OrderID string
	Order   *core.OrderCreatedEvent
	Details *core.PaymentDetails
	Reason  string
}

// Effect is an action the manager performs after a transition. Command
// fields come from the instance state.
type Effect interface {
	isEffect()
}

type EffectReserveProduct struct{}

type EffectFetchPaymentDetails struct{}

type EffectSchedulePaymentDeadline struct{}

type EffectCancelPaymentDeadline struct{}

type EffectRequestPayment struct {
	Details core.PaymentDetails
}

type EffectCancelReservation struct {
	Reason string
}

type EffectApproveOrder struct{}

type EffectRejectOrder struct {
	Reason string
}

type EffectPublishSummary struct {
	Status  core.OrderStatus
	Message string
}

type EffectEnd struct{}

func (EffectReserveProduct) isEffect()          {}
func (EffectFetchPaymentDetails) isEffect()     {}
func (EffectSchedulePaymentDeadline) isEffect() {}
func (EffectCancelPaymentDeadline) isEffect()   {}
func (EffectRequestPayment) isEffect()          {}
func (EffectCancelReservation) isEffect()       {}
func (EffectApproveOrder) isEffect()            {}
func (EffectRejectOrder) isEffect()             {}
func (EffectPublishSummary) isEffect()          {}
func (EffectEnd) isEffect()                     {}

// Transition applies one message to an instance and returns the next state
// plus the effects to run. Pure: no clock, no I/O, no identifiers minted.
// A message that does not match the current state returns the instance
// unchanged with no effects, which is how stale deliveries (a late
// PaymentProcessed after timeout, a second deadline trigger) are absorbed.
func Transition(in Instance, msg Message) (Instance, []Effect) {
	switch msg.Kind {
	case MsgOrderCreated:
		if in.State != "" || msg.Order == nil {
			return in, nil
		}

		in = Instance{
			OrderID:   msg.Order.OrderID,
			UserID:    msg.Order.UserID,
			ProductID: msg.Order.ProductID,
			Quantity:  msg.Order.Quantity,
			AddressID: msg.Order.AddressID,
			State:     StateAwaitingReservation,
		}

		return in, []Effect{EffectReserveProduct{}}

	case MsgReservationFailed:
		if in.State != StateAwaitingReservation {
			return in, nil
		}

		// Nothing was reserved, so there is nothing to compensate:
		// the order is rejected directly.
		in.State = StateCompensating

		return in, []Effect{EffectRejectOrder{Reason: msg.Reason}}

	case MsgProductReserved:
		if in.State != StateAwaitingReservation {
			return in, nil
		}

		in.State = StateAwaitingPayment

		return in, []Effect{EffectFetchPaymentDetails{}}

	case MsgPaymentDetailsUnavailable:
		if in.State != StateAwaitingPayment {
			return in, nil
		}

		in.State = StateCompensating

		return in, []Effect{EffectCancelReservation{Reason: msg.Reason}}

	case MsgPaymentDetailsFetched:
		if in.State != StateAwaitingPayment || in.DeadlineArmed || msg.Details == nil {
			return in, nil
		}

		in.DeadlineArmed = true

		return in, []Effect{
			EffectSchedulePaymentDeadline{},
			EffectRequestPayment{Details: *msg.Details},
		}

	case MsgPaymentProcessed:
		if in.State != StateAwaitingPayment {
			return in, nil
		}

		in.State = StateAwaitingApproval

		var effects []Effect
		if in.DeadlineArmed {
			in.DeadlineArmed = false
			effects = append(effects, EffectCancelPaymentDeadline{})
		}

		return in, append(effects, EffectApproveOrder{})

	case MsgPaymentFailed:
		if in.State != StateAwaitingPayment {
			return in, nil
		}

		in.State = StateCompensating

		var effects []Effect
		if in.DeadlineArmed {
			in.DeadlineArmed = false
			effects = append(effects, EffectCancelPaymentDeadline{})
		}

		return in, append(effects, EffectCancelReservation{Reason: msg.Reason})

	case MsgPaymentDeadlineElapsed:
		if in.State != StateAwaitingPayment {
			return in, nil
		}

		in.State = StateCompensating
		in.DeadlineArmed = false

		return in, []Effect{EffectCancelReservation{Reason: ReasonPaymentTimeout}}

	case MsgReservationCancelled:
		if in.State != StateCompensating {
			return in, nil
		}

		return in, []Effect{EffectRejectOrder{Reason: msg.Reason}}

	case MsgOrderApproved:
		if in.State != StateAwaitingApproval {
			return in, nil
		}

		in.State = StateCompleted

		return in, []Effect{
			EffectPublishSummary{Status: core.OrderStatusApproved},
			EffectEnd{},
		}

	case MsgOrderRejected:
		if in.State == StateCompleted || in.State == "" {
			return in, nil
		}

		in.State = StateCompleted

		var effects []Effect
		if in.DeadlineArmed {
			in.DeadlineArmed = false
			effects = append(effects, EffectCancelPaymentDeadline{})
		}

		return in, append(effects,
			EffectPublishSummary{Status: core.OrderStatusRejected, Message: msg.Reason},
			EffectEnd{},
		)
	}

	return in, nil
}
