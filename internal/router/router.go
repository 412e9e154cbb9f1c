package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

// CommandHandler is implemented by the aggregate owning a command's target
// identity.
type CommandHandler interface {
	Handle(ctx context.Context, cmd core.Command) error
}

// DispatchInterceptor runs before a command reaches its handler and may veto
// it, e.g. the product creation uniqueness check.
type DispatchInterceptor func(ctx context.Context, cmd core.Command) error

type EventHandler func(ctx context.Context, event eventstore.Event)

// Router delivers commands to the aggregate owning the target identity and
// fans emitted events out to subscribers. Commands against the same
// aggregate id are serialized; different ids run in parallel.
type Router struct {
	logger *zap.Logger
	tracer trace.Tracer

	mu           sync.RWMutex
	handlers     map[string]CommandHandler
	interceptors []DispatchInterceptor
	subscribers  map[string][]EventHandler

	locks sync.Map

	sendAttempts int
	retryDelay   time.Duration
}

func New(logger *zap.Logger) *Router {
	return &Router{
		logger:       logger,
		tracer:       otel.Tracer("router"),
		handlers:     make(map[string]CommandHandler),
		subscribers:  make(map[string][]EventHandler),
		sendAttempts: 3,
		retryDelay:   500 * time.Millisecond,
	}
}

func (r *Router) RegisterHandler(commandName string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[commandName] = handler
}

func (r *Router) Intercept(interceptor DispatchInterceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interceptors = append(r.interceptors, interceptor)
}

func (r *Router) Subscribe(eventType string, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[eventType] = append(r.subscribers[eventType], handler)
}

// SendAndAwait dispatches the command and blocks until the handler returns a
// result or the context expires.
func (r *Router) SendAndAwait(ctx context.Context, cmd core.Command) error {
	ctx, span := r.tracer.Start(ctx, "Router.SendAndAwait")
	defer span.End()

	span.SetAttributes(
		attribute.String("command", cmd.Name()),
		attribute.String("aggregate_id", cmd.AggregateID()),
	)

	if err := core.ValidateCommand(cmd); err != nil {
		mylogger.Warn(
			ctx,
			r.logger,
			"Command rejected by validation",
			zap.String("command", cmd.Name()),
			zap.Error(err),
		)

		return err
	}

	r.mu.RLock()
	interceptors := r.interceptors
	handler, ok := r.handlers[cmd.Name()]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler registered for command %s", cmd.Name())
	}

	for _, interceptor := range interceptors {
		if err := interceptor(ctx, cmd); err != nil {
			return err
		}
	}

	unlock := r.lockAggregate(cmd.AggregateID())
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return handler.Handle(ctx, cmd)
}

// Send dispatches the command fire-and-forget with bounded redelivery. A
// compensating command must never fail its sender, so errors here end at
// the log after the retries are spent.
func (r *Router) Send(ctx context.Context, cmd core.Command) {
	ctx = context.WithoutCancel(ctx)

	go func() {
		var err error
		for attempt := 0; attempt < r.sendAttempts; attempt++ {
			if err = r.SendAndAwait(ctx, cmd); err == nil {
				return
			}

			if attempt < r.sendAttempts-1 {
				time.Sleep(r.retryDelay)
			}
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Dropping command after redelivery attempts",
			zap.String("command", cmd.Name()),
			zap.String("aggregate_id", cmd.AggregateID()),
			zap.Error(err),
		)
	}()
}

// Publish fans committed events out to subscribers, preserving per-aggregate
// order. Called by aggregates after a successful append.
func (r *Router) Publish(ctx context.Context, events []eventstore.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ev := range events {
		for _, handler := range r.subscribers[ev.Type] {
			handler(ctx, ev)
		}
	}
}

func (r *Router) lockAggregate(aggregateID string) func() {
	value, _ := r.locks.LoadOrStore(aggregateID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}
