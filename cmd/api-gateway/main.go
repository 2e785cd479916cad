package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/core/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/infra/adapters/proxy"
	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/infra/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/health"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/server"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("api-gateway")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser := telemetry.InitLogger(cfg.Logging, cfg.Service.Name)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api gateway stopped with error", "error", err)
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

	downstreams := make([]entity.Downstream, 0, len(cfg.Gateway.Routes))
	proxies := make(map[string]http.Handler, len(cfg.Gateway.Routes))
	checkers := make(map[string]ports.HealthChecker, len(cfg.Gateway.Routes))
	for _, route := range cfg.Gateway.Routes {
		d := entity.Downstream{
			Name:       route.Name,
			PathPrefix: route.PathPrefix,
			URL:        route.URL,
			HealthAddr: route.HealthAddr,
		}
		downstreams = append(downstreams, d)

		p, err := proxy.New(d, cfg.Clients.Timeout, log)
		if err != nil {
			return err
		}
		proxies[d.Name] = p

		if d.HealthAddr != "" {
			probe, err := health.NewProbe(d.HealthAddr)
			if err != nil {
				return err
			}
			defer probe.Close()
			checkers[d.Name] = probe
		}
		log.Info("routing", "prefix", d.PathPrefix, "service", d.ServiceName(), "url", d.URL)
	}

	handler := httpx.NewHandler(downstreams, checkers, 2*time.Second, log)
	return server.Run(ctx, cfg.Service, httpx.NewRouter(handler, proxies), log)
}
