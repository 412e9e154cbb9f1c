package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

const pgUniqueViolation = "23505"

// PostgresStore is the durable event log. The events table also serves as
// the relay outbox: rows keep a published_at marker until the relay has
// shipped them to Kafka.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("eventstore/postgres"),
	}
}

func (s *PostgresStore) Load(ctx context.Context, aggregateID string) ([]Event, error) {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.Load")
	defer span.End()

	span.SetAttributes(attribute.String("aggregate_id", aggregateID))

	query := `
		SELECT aggregate_id, sequence, event_type, payload, created_at
		FROM events
		WHERE aggregate_id = $1
		ORDER BY sequence
	`

	rows, err := s.pool.Query(ctx, query, aggregateID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load event stream: %w", err)
	}
	defer rows.Close()

	var stream []Event
	for rows.Next() {
		var (
			ev   Event
			data []byte
		)
		if err := rows.Scan(&ev.AggregateID, &ev.Sequence, &ev.Type, &data, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		ev.Payload, err = core.DecodePayload(ev.Type, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}

		stream = append(stream, ev)
	}

	return stream, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, aggregateID string, expectedVersion int64, payloads []core.EventPayload) ([]Event, error) {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.Append")
	defer span.End()

	span.SetAttributes(
		attribute.String("aggregate_id", aggregateID),
		attribute.Int64("expected_version", expectedVersion),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(cleanupCtx, s.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	query := `
		INSERT INTO events (aggregate_id, sequence, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	now := time.Now()
	committed := make([]Event, 0, len(payloads))
	for i, payload := range payloads {
		ev := Event{
			AggregateID: aggregateID,
			Sequence:    expectedVersion + int64(i),
			Type:        payload.EventName(),
			Payload:     payload,
			Timestamp:   now,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}

		if _, err := tx.Exec(ctx, query, ev.AggregateID, ev.Sequence, ev.Type, data, ev.Timestamp); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				// Another writer claimed this sequence first.
				return nil, ErrVersionConflict
			}

			span.RecordError(err)
			return nil, fmt.Errorf("failed to append event: %w", err)
		}

		committed = append(committed, ev)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return committed, nil
}

// FetchUnpublished returns events not yet shipped to Kafka, oldest first.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]Event, error) {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.FetchUnpublished")
	defer span.End()

	query := `
		SELECT aggregate_id, sequence, event_type, payload, created_at
		FROM events
		WHERE published_at IS NULL
		ORDER BY created_at, aggregate_id, sequence
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev   Event
			data []byte
		)
		if err := rows.Scan(&ev.AggregateID, &ev.Sequence, &ev.Type, &data, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		ev.Payload, err = core.DecodePayload(ev.Type, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, aggregateID string, sequence int64) error {
	query := `
		UPDATE events
		SET published_at = NOW()
		WHERE aggregate_id = $1 AND sequence = $2
	`

	if _, err := s.pool.Exec(ctx, query, aggregateID, sequence); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to mark event published",
			zap.String("aggregate_id", aggregateID),
			zap.Int64("sequence", sequence),
			zap.Error(err),
		)

		return fmt.Errorf("failed to mark event published: %w", err)
	}

	return nil
}
