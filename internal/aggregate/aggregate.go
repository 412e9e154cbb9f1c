package aggregate

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

// Publisher receives committed events for fan-out. Satisfied by the router.
type Publisher interface {
	Publish(ctx context.Context, events []eventstore.Event)
}

// Decider validates a command against the replayed history and returns the
// single event the command produces. A nil payload with a nil error means
// the command was accepted as a no-op.
type Decider func(history []eventstore.Event, cmd core.Command) (core.EventPayload, error)

const maxAppendAttempts = 3

// Aggregate runs the load-replay-decide-append cycle shared by every
// event-sourced entity. Each command either appends exactly one event or
// fails without touching the stream.
type Aggregate struct {
	name      string
	store     eventstore.Store
	publisher Publisher
	decide    Decider
	logger    *zap.Logger
	tracer    trace.Tracer
}

func New(name string, store eventstore.Store, publisher Publisher, decide Decider, logger *zap.Logger) *Aggregate {
	return &Aggregate{
		name:      name,
		store:     store,
		publisher: publisher,
		decide:    decide,
		logger:    logger,
		tracer:    otel.Tracer("aggregate/" + name),
	}
}

func (a *Aggregate) Handle(ctx context.Context, cmd core.Command) error {
	ctx, span := a.tracer.Start(ctx, a.name+".Handle")
	defer span.End()

	span.SetAttributes(
		attribute.String("command", cmd.Name()),
		attribute.String("aggregate_id", cmd.AggregateID()),
	)

	var lastErr error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		history, err := a.store.Load(ctx, cmd.AggregateID())
		if err != nil {
			span.RecordError(err)
			return err
		}

		payload, err := a.decide(history, cmd)
		if err != nil {
			mylogger.Warn(
				ctx,
				a.logger,
				"Command rejected",
				zap.String("command", cmd.Name()),
				zap.String("aggregate_id", cmd.AggregateID()),
				zap.Error(err),
			)

			return err
		}
		if payload == nil {
			return nil
		}

		committed, err := a.store.Append(ctx, cmd.AggregateID(), int64(len(history)), []core.EventPayload{payload})
		if err != nil {
			if errors.Is(err, eventstore.ErrVersionConflict) {
				lastErr = err
				continue
			}

			span.RecordError(err)
			return err
		}

		a.publisher.Publish(ctx, committed)

		mylogger.Debug(
			ctx,
			a.logger,
			"Event committed",
			zap.String("event", payload.EventName()),
			zap.String("aggregate_id", cmd.AggregateID()),
		)

		return nil
	}

	return lastErr
}
