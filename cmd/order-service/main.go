package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/coordinator"
	"github.com/jcmexdev/ecommerce-orders/internal/coordinator/workflowlog"
	workflowsqlite "github.com/jcmexdev/ecommerce-orders/internal/coordinator/workflowlog/sqlite"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/client"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/kafka"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/sqlstore"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/database"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/server"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("order-service")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser := telemetry.InitLogger(cfg.Logging, cfg.Service.Name)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("order service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	shutdown, err := telemetry.SetupTracer(ctx, cfg.Service.Name, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
	}()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := sqlstore.New(ctx, db)
	if err != nil {
		return err
	}

	workflowRepo, err := workflowsqlite.Open(cfg.Orchestrator.WorkflowLogPath)
	if err != nil {
		return err
	}
	defer workflowRepo.Close()

	opts := app.Options{
		ReleaseStockOnAbort: cfg.Orchestrator.ReleaseStockOnAbort,
		Recorder: coordinator.MultiRecorder{
			coordinator.NewTraceRecorder("CreateOrder"),
			workflowlog.NewRecorder(workflowRepo, log),
		},
		Logger: log,
	}

	if len(cfg.Kafka.Brokers) > 0 {
		writer := kafka.NewWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		opts.Events = kafka.NewPublisher(writer, cfg.Kafka.Topic, log)
		log.Info("publishing order events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	var idempotency cache.Cache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idempotency = cache.NewRedisCache(rdb, "order")
	}

	clientCfg := func(baseURL string) client.Config {
		return client.Config{BaseURL: baseURL, Timeout: cfg.Clients.Timeout, Logger: log}
	}
	orders := app.NewService(
		client.NewUserClient(clientCfg(cfg.Clients.UserServiceURL)),
		client.NewProductClient(clientCfg(cfg.Clients.ProductServiceURL)),
		store,
		opts,
	)

	handler := httpx.NewHandler(orders, idempotency, cfg.Redis.IdempotencyTTL, log)
	return server.Run(ctx, cfg.Service, httpx.NewRouter(handler), log)
}
