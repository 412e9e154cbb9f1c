package saga

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/internal/router"
	"github.com/Athul-Krishna/ProjectTransac/internal/users"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

// CommandBus is the slice of the router the saga needs.
type CommandBus interface {
	Send(ctx context.Context, cmd core.Command)
	SendAndAwait(ctx context.Context, cmd core.Command) error
}

// SummarySink receives the terminal outcome of a completed saga.
type SummarySink interface {
	PublishOrderSummary(ctx context.Context, summary core.OrderSummary)
}

type Config struct {
	// PaymentDeadline bounds how long the saga waits for a payment
	// result before compensating.
	PaymentDeadline time.Duration
	// CommandTimeout bounds synchronous command dispatches other than
	// payment.
	CommandTimeout time.Duration
}

const (
	DefaultPaymentDeadline = 120 * time.Second
	DefaultCommandTimeout  = 10 * time.Second

	inboxSize = 32
)

// Manager owns the live saga instances. Each instance processes its inbox
// serially in its own goroutine, so one order's blocking calls never stall
// another order's saga.
type Manager struct {
	bus    CommandBus
	lookup users.Fetcher
	store  Store
	sink   SummarySink
	logger *zap.Logger
	tracer trace.Tracer

	paymentDeadline time.Duration
	commandTimeout  time.Duration

	mu      sync.Mutex
	closed  bool
	running map[string]*instanceRuntime
	wg      sync.WaitGroup
}

type instanceRuntime struct {
	inbox chan envelope

	mu    sync.Mutex
	timer *time.Timer
}

type envelope struct {
	ctx context.Context
	msg Message
}

func NewManager(bus CommandBus, lookup users.Fetcher, store Store, sink SummarySink, logger *zap.Logger, cfg Config) *Manager {
	if cfg.PaymentDeadline <= 0 {
		cfg.PaymentDeadline = DefaultPaymentDeadline
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}

	return &Manager{
		bus:             bus,
		lookup:          lookup,
		store:           store,
		sink:            sink,
		logger:          logger,
		tracer:          otel.Tracer("saga/manager"),
		paymentDeadline: cfg.PaymentDeadline,
		commandTimeout:  cfg.CommandTimeout,
		running:         make(map[string]*instanceRuntime),
	}
}

// RegisterSubscriptions wires the manager to every event type the saga
// correlates on.
func (m *Manager) RegisterSubscriptions(r *router.Router) {
	for _, eventType := range []string{
		core.EventOrderCreated,
		core.EventProductReserved,
		core.EventProductReservationCancelled,
		core.EventPaymentProcessed,
		core.EventOrderApproved,
		core.EventOrderRejected,
	} {
		r.Subscribe(eventType, m.onEvent)
	}
}

// Start reloads live instances from the store after a restart. Armed
// deadlines are re-armed for the full duration; progress otherwise resumes
// from redelivered events (the delivery layer is at-least-once).
func (m *Manager) Start(ctx context.Context) error {
	instances, err := m.store.LoadActive(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, in := range instances {
		rt := m.spawnLocked(in, in.OrderID)
		if in.DeadlineArmed {
			m.schedule(rt, in.OrderID)
		}

		mylogger.Info(
			ctx,
			m.logger,
			"Recovered saga instance",
			zap.String("order_id", in.OrderID),
			zap.String("state", string(in.State)),
		)
	}

	return nil
}

// Stop retires every live instance after draining its inbox.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.closed = true
	for _, rt := range m.running {
		rt.cancelTimer()
		close(rt.inbox)
	}
	m.running = make(map[string]*instanceRuntime)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) onEvent(ctx context.Context, ev eventstore.Event) {
	msg, ok := messageFromEvent(ev)
	if !ok {
		return
	}

	m.deliver(ctx, msg)
}

func messageFromEvent(ev eventstore.Event) (Message, bool) {
	switch payload := ev.Payload.(type) {
	case core.OrderCreatedEvent:
		return Message{Kind: MsgOrderCreated, OrderID: payload.OrderID, Order: &payload}, true
	case core.ProductReservedEvent:
		return Message{Kind: MsgProductReserved, OrderID: payload.OrderID}, true
	case core.ProductReservationCancelledEvent:
		return Message{Kind: MsgReservationCancelled, OrderID: payload.OrderID, Reason: payload.Reason}, true
	case core.PaymentProcessedEvent:
		return Message{Kind: MsgPaymentProcessed, OrderID: payload.OrderID}, true
	case core.OrderApprovedEvent:
		return Message{Kind: MsgOrderApproved, OrderID: payload.OrderID}, true
	case core.OrderRejectedEvent:
		return Message{Kind: MsgOrderRejected, OrderID: payload.OrderID, Reason: payload.Reason}, true
	default:
		return Message{}, false
	}
}

func (m *Manager) deliver(ctx context.Context, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	rt, ok := m.running[msg.OrderID]
	if !ok {
		if msg.Kind != MsgOrderCreated {
			mylogger.Debug(
				ctx,
				m.logger,
				"Ignoring message for retired or unknown saga",
				zap.String("order_id", msg.OrderID),
				zap.String("kind", string(msg.Kind)),
			)

			return
		}

		rt = m.spawnLocked(Instance{}, msg.OrderID)
	}

	select {
	case rt.inbox <- envelope{ctx: context.WithoutCancel(ctx), msg: msg}:
	default:
		mylogger.Error(
			ctx,
			m.logger,
			"Saga inbox full, dropping message",
			zap.String("order_id", msg.OrderID),
			zap.String("kind", string(msg.Kind)),
		)
	}
}

func (m *Manager) spawnLocked(in Instance, orderID string) *instanceRuntime {
	rt := &instanceRuntime{
		inbox: make(chan envelope, inboxSize),
	}
	m.running[orderID] = rt

	m.wg.Add(1)
	go m.run(in, rt, orderID)

	return rt
}

func (m *Manager) run(in Instance, rt *instanceRuntime, orderID string) {
	defer m.wg.Done()

	for env := range rt.inbox {
		ctx, span := m.tracer.Start(env.ctx, "OrderSaga.Handle")
		span.SetAttributes(
			attribute.String("order_id", orderID),
			attribute.String("message", string(env.msg.Kind)),
		)

		next, effects := Transition(in, env.msg)
		if next != in {
			if err := m.store.Save(ctx, next); err != nil {
				mylogger.Error(
					ctx,
					m.logger,
					"Failed to persist saga instance",
					zap.String("order_id", orderID),
					zap.Error(err),
				)
			}
		}
		in = next

		ended := m.execute(ctx, in, effects, rt)
		span.End()

		if ended {
			return
		}
	}
}

func (m *Manager) execute(ctx context.Context, in Instance, effects []Effect, rt *instanceRuntime) bool {
	for _, effect := range effects {
		switch e := effect.(type) {
		case EffectReserveProduct:
			m.reserveProduct(ctx, in)

		case EffectFetchPaymentDetails:
			m.fetchPaymentDetails(ctx, in)

		case EffectSchedulePaymentDeadline:
			m.schedule(rt, in.OrderID)

		case EffectCancelPaymentDeadline:
			rt.cancelTimer()

		case EffectRequestPayment:
			m.requestPayment(ctx, in, e.Details)

		case EffectCancelReservation:
			m.bus.Send(ctx, core.CancelProductReservationCommand{
				OrderID:   in.OrderID,
				ProductID: in.ProductID,
				UserID:    in.UserID,
				Quantity:  in.Quantity,
				Reason:    e.Reason,
			})

		case EffectApproveOrder:
			m.bus.Send(ctx, core.ApproveOrderCommand{OrderID: in.OrderID})

		case EffectRejectOrder:
			m.bus.Send(ctx, core.RejectOrderCommand{OrderID: in.OrderID, Reason: e.Reason})

		case EffectPublishSummary:
			m.sink.PublishOrderSummary(ctx, core.OrderSummary{
				OrderID: in.OrderID,
				Status:  e.Status,
				Message: e.Message,
			})

		case EffectEnd:
			rt.cancelTimer()
			m.retire(ctx, in.OrderID)

			mylogger.Info(
				ctx,
				m.logger,
				"Order saga complete",
				zap.String("order_id", in.OrderID),
				zap.String("state", string(in.State)),
			)

			return true
		}
	}

	return false
}

func (m *Manager) reserveProduct(ctx context.Context, in Instance) {
	cmdCtx, cancel := context.WithTimeout(ctx, m.commandTimeout)
	defer cancel()

	err := m.bus.SendAndAwait(cmdCtx, core.ReserveProductCommand{
		OrderID:   in.OrderID,
		ProductID: in.ProductID,
		UserID:    in.UserID,
		Quantity:  in.Quantity,
	})
	if err != nil {
		mylogger.Warn(
			ctx,
			m.logger,
			"Product reservation failed",
			zap.String("order_id", in.OrderID),
			zap.String("product_id", in.ProductID),
			zap.Error(err),
		)

		m.deliver(ctx, Message{Kind: MsgReservationFailed, OrderID: in.OrderID, Reason: err.Error()})
	}
}

func (m *Manager) fetchPaymentDetails(ctx context.Context, in Instance) {
	user, err := m.lookup.FetchUserPaymentDetails(ctx, in.UserID)
	if err != nil {
		m.deliver(ctx, Message{Kind: MsgPaymentDetailsUnavailable, OrderID: in.OrderID, Reason: err.Error()})
		return
	}
	if user == nil {
		m.deliver(ctx, Message{
			Kind:    MsgPaymentDetailsUnavailable,
			OrderID: in.OrderID,
			Reason:  "Could not fetch user payment details",
		})

		return
	}

	details := user.PaymentDetails
	m.deliver(ctx, Message{Kind: MsgPaymentDetailsFetched, OrderID: in.OrderID, Details: &details})
}

func (m *Manager) requestPayment(ctx context.Context, in Instance, details core.PaymentDetails) {
	// The synchronous call is bounded by the same deadline as the timer,
	// so a hung payment handler cannot wedge the instance goroutine past
	// the point where the timeout should win.
	cmdCtx, cancel := context.WithTimeout(ctx, m.paymentDeadline)
	defer cancel()

	err := m.bus.SendAndAwait(cmdCtx, core.ProcessPaymentCommand{
		PaymentID:      PaymentID(in.OrderID),
		OrderID:        in.OrderID,
		PaymentDetails: &details,
	})
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonPaymentTimeout
		}

		mylogger.Warn(
			ctx,
			m.logger,
			"Payment processing failed",
			zap.String("order_id", in.OrderID),
			zap.String("reason", reason),
		)

		m.deliver(ctx, Message{Kind: MsgPaymentFailed, OrderID: in.OrderID, Reason: reason})
	}
}

func (m *Manager) schedule(rt *instanceRuntime, orderID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.timer != nil {
		// Re-arming before cancellation is a bug state; replace the
		// stale timer rather than leak it.
		m.logger.Error("payment deadline already armed", zap.String("order_id", orderID))
		rt.timer.Stop()
	}

	rt.timer = time.AfterFunc(m.paymentDeadline, func() {
		m.deliver(context.Background(), Message{Kind: MsgPaymentDeadlineElapsed, OrderID: orderID})
	})
}

func (rt *instanceRuntime) cancelTimer() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
}

func (m *Manager) retire(ctx context.Context, orderID string) {
	m.mu.Lock()
	delete(m.running, orderID)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, orderID); err != nil {
		mylogger.Error(
			ctx,
			m.logger,
			"Failed to delete saga instance",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

var paymentIDNamespace = uuid.MustParse("9f2c6a1e-54d3-4c8b-9a47-2f8d1e0b6c35")

// PaymentID derives a stable payment id from the order id, so a redelivered
// ProcessPayment lands on the same payment stream.
func PaymentID(orderID string) string {
	return uuid.NewSHA1(paymentIDNamespace, []byte(orderID)).String()
}
