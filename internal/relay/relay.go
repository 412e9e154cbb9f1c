// Package relay ships committed events from the event store to Kafka. The
// events table doubles as the outbox, so a crash between commit and publish
// only delays delivery; consumers see at-least-once semantics and must
// deduplicate on the event id.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

// EventSource is the outbox view of the event store.
type EventSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]eventstore.Event, error)
	MarkPublished(ctx context.Context, aggregateID string, sequence int64) error
}

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key string, message interface{}) error
}

type Relay struct {
	source    EventSource
	producer  Producer
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func New(source EventSource, producer Producer, logger *zap.Logger, batchSize int, interval time.Duration) *Relay {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &Relay{
		source:    source,
		producer:  producer,
		logger:    logger,
		batchSize: batchSize,
		interval:  interval,
		tracer:    otel.Tracer("relay"),
	}
}

func (r *Relay) Start(ctx context.Context) {
	mylogger.Info(ctx, r.logger, "Starting event relay")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, r.logger, "Event relay stopping")
			return
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				mylogger.Error(ctx, r.logger, "Error processing relay batch", zap.Error(err))
			}
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "Relay.processBatch")
	defer span.End()

	events, err := r.source.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	mylogger.Debug(ctx, r.logger, "Relaying events", zap.Int("count", len(events)))

	for _, ev := range events {
		if err := r.publish(ctx, ev); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to relay event",
				zap.String("aggregate_id", ev.AggregateID),
				zap.Int64("sequence", ev.Sequence),
				zap.Error(err),
			)

			// Leave the marker in place; the next tick retries.
			continue
		}

		if err := r.source.MarkPublished(ctx, ev.AggregateID, ev.Sequence); err != nil {
			return err
		}
	}

	return nil
}

func (r *Relay) publish(ctx context.Context, ev eventstore.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := map[string]any{
		"event":    ev.Type,
		"event_id": EventID(ev),
		"payload":  json.RawMessage(payload),
	}

	return r.producer.ProduceMessage(ctx, core.TopicFor(ev.Type), ev.AggregateID, envelope)
}

// EventID identifies an event across redeliveries: the stream position is
// stable, unlike broker offsets.
func EventID(ev eventstore.Event) string {
	return fmt.Sprintf("%s:%d", ev.AggregateID, ev.Sequence)
}
