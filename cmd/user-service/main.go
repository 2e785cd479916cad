package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/database"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/server"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
	"github.com/jcmexdev/ecommerce-orders/internal/user-service/adapters/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/user-service/adapters/sqlstore"
	"github.com/jcmexdev/ecommerce-orders/internal/user-service/app"
)

func main() {
	cfg, err := config.Load("user-service")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser := telemetry.InitLogger(cfg.Logging, cfg.Service.Name)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("user service stopped with error", "error", err)
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

	users := app.NewService(store, log)
	return server.Run(ctx, cfg.Service, httpx.NewRouter(httpx.NewHandler(users, log)), log)
}
