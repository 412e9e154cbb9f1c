package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
)

func orderCreated() Message {
	return Message{
		Kind:    MsgOrderCreated,
		OrderID: "order-1",
		Order: &core.OrderCreatedEvent{
			OrderID:   "order-1",
			UserID:    "user-1",
			ProductID: "product-1",
			Quantity:  2,
			AddressID: "address-1",
			Status:    core.OrderStatusCreated,
		},
	}
}

func TestTransitionHappyPath(t *testing.T) {
	in, effects := Transition(Instance{}, orderCreated())

	require.Equal(t, StateAwaitingReservation, in.State)
	require.Equal(t, "user-1", in.UserID)
	require.Equal(t, []Effect{EffectReserveProduct{}}, effects)

	in, effects = Transition(in, Message{Kind: MsgProductReserved, OrderID: "order-1"})
	require.Equal(t, StateAwaitingPayment, in.State)
	require.Equal(t, []Effect{EffectFetchPaymentDetails{}}, effects)

	details := core.PaymentDetails{CardNumber: "123Card", CVV: "123", Name: "JOHN DOE"}
	in, effects = Transition(in, Message{Kind: MsgPaymentDetailsFetched, OrderID: "order-1", Details: &details})
	require.True(t, in.DeadlineArmed)
	require.Equal(t, []Effect{
		EffectSchedulePaymentDeadline{},
		EffectRequestPayment{Details: details},
	}, effects)

	in, effects = Transition(in, Message{Kind: MsgPaymentProcessed, OrderID: "order-1"})
	require.Equal(t, StateAwaitingApproval, in.State)
	require.False(t, in.DeadlineArmed)
	require.Equal(t, []Effect{EffectCancelPaymentDeadline{}, EffectApproveOrder{}}, effects)

	in, effects = Transition(in, Message{Kind: MsgOrderApproved, OrderID: "order-1"})
	require.Equal(t, StateCompleted, in.State)
	require.Equal(t, []Effect{
		EffectPublishSummary{Status: core.OrderStatusApproved},
		EffectEnd{},
	}, effects)
}

func TestTransitionReservationFailed(t *testing.T) {
	in, _ := Transition(Instance{}, orderCreated())

	in, effects := Transition(in, Message{
		Kind:    MsgReservationFailed,
		OrderID: "order-1",
		Reason:  "insufficient stock for product product-1: requested 2, available 0",
	})

	require.Equal(t, StateCompensating, in.State)
	require.Len(t, effects, 1)
	reject, ok := effects[0].(EffectRejectOrder)
	require.True(t, ok)
	assert.Contains(t, reject.Reason, "insufficient stock")

	in, effects = Transition(in, Message{Kind: MsgOrderRejected, OrderID: "order-1", Reason: reject.Reason})
	require.Equal(t, StateCompleted, in.State)
	require.Equal(t, []Effect{
		EffectPublishSummary{Status: core.OrderStatusRejected, Message: reject.Reason},
		EffectEnd{},
	}, effects)
}

func TestTransitionPaymentFailureCompensates(t *testing.T) {
	in, _ := Transition(Instance{}, orderCreated())
	in, _ = Transition(in, Message{Kind: MsgProductReserved, OrderID: "order-1"})
	in, _ = Transition(in, Message{Kind: MsgPaymentDetailsFetched, OrderID: "order-1", Details: &core.PaymentDetails{}})

	in, effects := Transition(in, Message{Kind: MsgPaymentFailed, OrderID: "order-1", Reason: "card declined"})

	require.Equal(t, StateCompensating, in.State)
	require.False(t, in.DeadlineArmed)
	require.Equal(t, []Effect{
		EffectCancelPaymentDeadline{},
		EffectCancelReservation{Reason: "card declined"},
	}, effects)

	in, effects = Transition(in, Message{Kind: MsgReservationCancelled, OrderID: "order-1", Reason: "card declined"})
	require.Equal(t, StateCompensating, in.State)
	require.Equal(t, []Effect{EffectRejectOrder{Reason: "card declined"}}, effects)
}

func TestTransitionPaymentDeadlineElapsed(t *testing.T) {
	in, _ := Transition(Instance{}, orderCreated())
	in, _ = Transition(in, Message{Kind: MsgProductReserved, OrderID: "order-1"})
	in, _ = Transition(in, Message{Kind: MsgPaymentDetailsFetched, OrderID: "order-1", Details: &core.PaymentDetails{}})

	in, effects := Transition(in, Message{Kind: MsgPaymentDeadlineElapsed, OrderID: "order-1"})

	require.Equal(t, StateCompensating, in.State)
	require.False(t, in.DeadlineArmed)
	require.Equal(t, []Effect{EffectCancelReservation{Reason: ReasonPaymentTimeout}}, effects)
}

func TestTransitionPaymentDetailsUnavailable(t *testing.T) {
	in, _ := Transition(Instance{}, orderCreated())
	in, _ = Transition(in, Message{Kind: MsgProductReserved, OrderID: "order-1"})

	in, effects := Transition(in, Message{
		Kind:    MsgPaymentDetailsUnavailable,
		OrderID: "order-1",
		Reason:  "Could not fetch user payment details",
	})

	require.Equal(t, StateCompensating, in.State)
	require.Equal(t, []Effect{EffectCancelReservation{Reason: "Could not fetch user payment details"}}, effects)
}

func TestTransitionIgnoresStaleMessages(t *testing.T) {
	created, _ := Transition(Instance{}, orderCreated())

	awaitingPayment, _ := Transition(created, Message{Kind: MsgProductReserved, OrderID: "order-1"})
	awaitingPayment, _ = Transition(awaitingPayment, Message{Kind: MsgPaymentDetailsFetched, OrderID: "order-1", Details: &core.PaymentDetails{}})
	compensating, _ := Transition(awaitingPayment, Message{Kind: MsgPaymentDeadlineElapsed, OrderID: "order-1"})

	tests := []struct {
		name string
		in   Instance
		msg  Message
	}{
		{
			name: "order created twice",
			in:   created,
			msg:  orderCreated(),
		},
		{
			name: "payment result after timeout",
			in:   compensating,
			msg:  Message{Kind: MsgPaymentProcessed, OrderID: "order-1"},
		},
		{
			name: "second deadline trigger",
			in:   compensating,
			msg:  Message{Kind: MsgPaymentDeadlineElapsed, OrderID: "order-1"},
		},
		{
			name: "payment failure after timeout",
			in:   compensating,
			msg:  Message{Kind: MsgPaymentFailed, OrderID: "order-1", Reason: "card declined"},
		},
		{
			name: "duplicate details fetch while deadline armed",
			in:   awaitingPayment,
			msg:  Message{Kind: MsgPaymentDetailsFetched, OrderID: "order-1", Details: &core.PaymentDetails{}},
		},
		{
			name: "reservation cancelled outside compensation",
			in:   created,
			msg:  Message{Kind: MsgReservationCancelled, OrderID: "order-1"},
		},
		{
			name: "approval before payment",
			in:   created,
			msg:  Message{Kind: MsgOrderApproved, OrderID: "order-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, effects := Transition(tt.in, tt.msg)

			assert.Equal(t, tt.in, out)
			assert.Empty(t, effects)
		})
	}
}

func TestTransitionRejectionFromAnyLiveState(t *testing.T) {
	created, _ := Transition(Instance{}, orderCreated())
	awaitingPayment, _ := Transition(created, Message{Kind: MsgProductReserved, OrderID: "order-1"})
	armed, _ := Transition(awaitingPayment, Message{Kind: MsgPaymentDetailsFetched, OrderID: "order-1", Details: &core.PaymentDetails{}})

	for _, in := range []Instance{created, awaitingPayment, armed} {
		out, effects := Transition(in, Message{Kind: MsgOrderRejected, OrderID: "order-1", Reason: "ops"})

		require.Equal(t, StateCompleted, out.State)
		require.False(t, out.DeadlineArmed)
		require.Contains(t, effects, Effect(EffectEnd{}))
		require.Contains(t, effects, Effect(EffectPublishSummary{Status: core.OrderStatusRejected, Message: "ops"}))
	}
}
