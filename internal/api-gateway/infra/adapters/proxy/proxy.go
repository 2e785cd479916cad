// Package proxy forwards gateway traffic to the downstream services.
package proxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/ecommerce-orders/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/web"
)

// New returns a reverse proxy to d. When d cannot be reached the client gets
// 503 with d's fallback body.
func New(d entity.Downstream, timeout time.Duration, log *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(d.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("proxy: invalid url %q for %s", d.URL, d.Name)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	fallback := d.Fallback()
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: otelhttp.NewTransport(web.RequestIDTransport{Base: transport}),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WarnContext(r.Context(), "downstream unavailable, returning fallback",
				"service", fallback.Service,
				"path", r.URL.Path,
				"error", err,
			)
			web.WriteJSON(w, http.StatusServiceUnavailable, fallback)
		},
	}, nil
}
