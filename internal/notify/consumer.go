// Package notify consumes the order events topic and informs the customer of
// the order outcome. Processing is deduplicated on the event id, so broker
// redeliveries do not produce duplicate notifications.
package notify

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/pkg/kafka"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

type Consumer struct {
	sender Sender
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewConsumer(sender Sender, pool *pgxpool.Pool, logger *zap.Logger) *Consumer {
	return &Consumer{
		sender: sender,
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("notify"),
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		"notification-group",
		[]string{core.TopicOrderEvents},
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	type EventWrapper struct {
		Event   string          `json:"event"`
		EventID string          `json:"event_id"`
		Payload json.RawMessage `json:"payload"`
	}

	var wrapper EventWrapper
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.Error(err))
		return err
	}

	switch wrapper.Event {
	case core.EventOrderApproved:
		var event core.OrderApprovedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Error parsing event", zap.Error(err))
			return nil
		}

		return c.handleOrderApproved(ctx, wrapper.EventID, event)

	case core.EventOrderRejected:
		var event core.OrderRejectedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Error parsing event", zap.Error(err))
			return nil
		}

		return c.handleOrderRejected(ctx, wrapper.EventID, event)
	}

	// OrderCreated and friends carry nothing to notify about.
	return nil
}

func (c *Consumer) handleOrderApproved(ctx context.Context, eventID string, event core.OrderApprovedEvent) error {
	ctx, span := c.tracer.Start(ctx, "Notify.HandleOrderApproved")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	return processWithDeduplication(ctx, c.pool, c.logger, eventID, func() error {
		return c.sender.SendOrderApproved(ctx, event.OrderID)
	})
}

func (c *Consumer) handleOrderRejected(ctx context.Context, eventID string, event core.OrderRejectedEvent) error {
	ctx, span := c.tracer.Start(ctx, "Notify.HandleOrderRejected")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	return processWithDeduplication(ctx, c.pool, c.logger, eventID, func() error {
		return c.sender.SendOrderRejected(ctx, event.OrderID, event.Reason)
	})
}
