package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
	"github.com/Athul-Krishna/ProjectTransac/internal/eventstore"
	"github.com/Athul-Krishna/ProjectTransac/internal/notify"
	"github.com/Athul-Krishna/ProjectTransac/internal/order"
	"github.com/Athul-Krishna/ProjectTransac/internal/payment"
	"github.com/Athul-Krishna/ProjectTransac/internal/product"
	"github.com/Athul-Krishna/ProjectTransac/internal/query"
	"github.com/Athul-Krishna/ProjectTransac/internal/relay"
	"github.com/Athul-Krishna/ProjectTransac/internal/router"
	"github.com/Athul-Krishna/ProjectTransac/internal/saga"
	"github.com/Athul-Krishna/ProjectTransac/internal/users"
	"github.com/Athul-Krishna/ProjectTransac/pkg/config"
	"github.com/Athul-Krishna/ProjectTransac/pkg/db"
	"github.com/Athul-Krishna/ProjectTransac/pkg/kafka"
	"github.com/Athul-Krishna/ProjectTransac/pkg/mylogger"
	"github.com/Athul-Krishna/ProjectTransac/pkg/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracer(ctx, "fulfillment")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: cfg.LogLevel,
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	store := eventstore.NewPostgresStore(pool, logger)
	r := router.New(logger)

	productAgg := product.NewAggregate(store, r, logger)
	r.RegisterHandler(core.CommandCreateProduct, productAgg)
	r.RegisterHandler(core.CommandReserveProduct, productAgg)
	r.RegisterHandler(core.CommandCancelProductReservation, productAgg)

	paymentAgg := payment.NewAggregate(store, r, logger)
	r.RegisterHandler(core.CommandProcessPayment, paymentAgg)

	orderAgg := order.NewAggregate(store, r, logger)
	r.RegisterHandler(core.CommandCreateOrder, orderAgg)
	r.RegisterHandler(core.CommandApproveOrder, orderAgg)
	r.RegisterHandler(core.CommandRejectOrder, orderAgg)

	lookupTable := product.NewLookupTable(logger)
	r.Intercept(lookupTable.Interceptor())
	lookupTable.RegisterSubscriptions(r)

	orders := query.NewOrders(logger)
	orders.RegisterSubscriptions(r)

	products := query.NewProducts(redisClient)
	products.RegisterSubscriptions(r)

	sagaStore := saga.NewPostgresStore(pool, logger)
	manager := saga.NewManager(r, users.NewLookup(logger), sagaStore, orders, logger, saga.Config{
		PaymentDeadline: cfg.Saga.PaymentDeadline,
		CommandTimeout:  cfg.Saga.CommandTimeout,
	})
	manager.RegisterSubscriptions(r)

	if err := manager.Start(ctx); err != nil {
		log.Fatalf("failed to recover saga instances: %v", err)
	}

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	eventRelay := relay.New(store, kafkaProducer, logger, cfg.Relay.BatchSize, cfg.Relay.Interval)
	go eventRelay.Start(ctx)

	notifier := notify.NewConsumer(notify.NewLogSender(logger), pool, logger)
	go func() {
		if err := notifier.Start(ctx, cfg.Kafka.Brokers); err != nil {
			mylogger.Error(ctx, logger, "Notification consumer stopped", zap.Error(err))
		}
	}()

	mylogger.Info(ctx, logger, "Fulfillment service started", zap.String("env", cfg.Env))

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.WithoutCancel(ctx), time.Second*5)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down fulfillment service")

	manager.Stop()

	if err := kafkaProducer.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close kafka producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	pool.Close()
}
