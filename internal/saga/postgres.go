package saga

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
)

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("saga/postgres"),
	}
}

func (s *PostgresStore) Save(ctx context.Context, in Instance) error {
	ctx, span := s.tracer.Start(ctx, "SagaStore.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", in.OrderID),
		attribute.String("state", string(in.State)),
	)

	query := `
		INSERT INTO saga_instances (order_id, user_id, product_id, quantity, address_id, state, deadline_armed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (order_id) DO UPDATE
		SET state = EXCLUDED.state,
		    deadline_armed = EXCLUDED.deadline_armed,
		    updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query,
		in.OrderID,
		in.UserID,
		in.ProductID,
		in.Quantity,
		in.AddressID,
		string(in.State),
		in.DeadlineArmed,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to save saga instance",
			zap.String("order_id", in.OrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to save saga instance: %w", err)
	}

	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, orderID string) error {
	query := `
		DELETE FROM saga_instances
		WHERE order_id = $1
	`

	if _, err := s.pool.Exec(ctx, query, orderID); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to delete saga instance",
			zap.String("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to delete saga instance: %w", err)
	}

	return nil
}

func (s *PostgresStore) LoadActive(ctx context.Context) ([]Instance, error) {
	ctx, span := s.tracer.Start(ctx, "SagaStore.LoadActive")
	defer span.End()

	query := `
		SELECT order_id, user_id, product_id, quantity, address_id, state, deadline_armed
		FROM saga_instances
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load saga instances: %w", err)
	}
	defer rows.Close()

	var instances []Instance
	for rows.Next() {
		var (
			in    Instance
			state string
		)
		if err := rows.Scan(&in.OrderID, &in.UserID, &in.ProductID, &in.Quantity, &in.AddressID, &state, &in.DeadlineArmed); err != nil {
			return nil, fmt.Errorf("failed to scan saga instance: %w", err)
		}

		in.State = LifecycleState(state)
		instances = append(instances, in)
	}

	return instances, rows.Err()
}
