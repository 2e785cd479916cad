// Package client talks HTTP to the user and product services.
//
// Every call returns an explicit result: a definitive "absent" or "refused"
// answer comes back as a zero value with a nil error, while anything that
// prevented an answer (network, timeout, 5xx, unreadable body) is an error
// wrapping ErrUnavailable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/web"
)

var ErrUnavailable = errors.New("collaborator unavailable")

// maxResponseBytes bounds what we read from a collaborator.
const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// base holds what the user and product clients share.
type base struct {
	service string
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     *slog.Logger
}

func newBase(service string, cfg Config) base {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(web.RequestIDTransport{Base: http.DefaultTransport}),
			Timeout:   cfg.Timeout,
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return base{
		service: service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    hc,
		log:     log.With("collaborator", service),
	}
}

// do sends one request bounded by the configured timeout and returns the
// status code and body. Transport failures wrap ErrUnavailable.
func (b base) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode request: %w", b.service, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", b.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := b.http.Do(req)
	if err != nil {
		b.log.WarnContext(ctx, "collaborator call failed", "method", method, "path", path, "error", err)
		return 0, nil, fmt.Errorf("%w: %s %s %s: %w", ErrUnavailable, b.service, method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s: read response: %w", ErrUnavailable, b.service, err)
	}

	b.log.DebugContext(ctx, "collaborator call",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"duration", time.Since(start),
	)
	return res.StatusCode, data, nil
}

func (b base) unexpected(method, path string, status int) error {
	return fmt.Errorf("%w: %s %s %s returned %d", ErrUnavailable, b.service, method, path, status)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
