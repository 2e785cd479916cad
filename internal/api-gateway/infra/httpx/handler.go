package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/core/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/web"
)

const (
	gatewayMessage = "API Gateway is running!"
	serving        = "SERVING"
)

// Handler serves the gateway's own endpoints; proxied traffic never reaches it.
type Handler struct {
	downstreams  []entity.Downstream
	checkers     map[string]ports.HealthChecker
	probeTimeout time.Duration
	log          *slog.Logger
}

// NewHandler takes one checker per downstream name. A downstream without a
// checker is reported as UNKNOWN.
func NewHandler(downstreams []entity.Downstream, checkers map[string]ports.HealthChecker, probeTimeout time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		downstreams:  downstreams,
		checkers:     checkers,
		probeTimeout: probeTimeout,
		log:          log,
	}
}

// Fallback always answers 503 with the degraded payload for d.
func (h *Handler) Fallback(d entity.Downstream) http.HandlerFunc {
	fallback := d.Fallback()
	return func(w http.ResponseWriter, r *http.Request) {
		h.log.WarnContext(r.Context(), "service unavailable, returning fallback response", "service", fallback.Service)
		web.WriteJSON(w, http.StatusServiceUnavailable, fallback)
	}
}

// Health probes every downstream in parallel. It answers 200 when all of them
// are SERVING and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.probeTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		statuses = make(map[string]string, len(h.downstreams))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range h.downstreams {
		checker, ok := h.checkers[d.Name]
		if !ok {
			mu.Lock()
			statuses[d.Name] = "UNKNOWN"
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			status, err := checker.Check(gctx, d.ServiceName())
			if err != nil {
				h.log.WarnContext(ctx, "health probe failed", "service", d.ServiceName(), "error", err)
			}
			mu.Lock()
			statuses[d.Name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{Status: "UP", Message: gatewayMessage, Services: statuses}
	code := http.StatusOK
	for _, st := range statuses {
		if st != serving {
			resp.Status = "DEGRADED"
			code = http.StatusServiceUnavailable
			break
		}
	}
	web.WriteJSON(w, code, resp)
}
