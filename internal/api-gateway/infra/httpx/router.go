package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/health"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/web"
)

// NewRouter mounts one proxy per downstream under its path prefix, keyed by
// downstream name, next to the gateway's own fallback and health routes.
func NewRouter(handler *Handler, proxies map[string]http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(web.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.Health)
	r.Route("/fallback", func(r chi.Router) {
		r.Get("/health", health.TextHandler(gatewayMessage))
		for _, d := range handler.downstreams {
			r.Get("/"+d.Name, handler.Fallback(d))
		}
	})

	for _, d := range handler.downstreams {
		if p, ok := proxies[d.Name]; ok {
			r.Mount(d.PathPrefix, p)
		}
	}
	return r
}
