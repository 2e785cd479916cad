package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors/constants"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func TestUnaryServerInterceptor_UsesIncomingRequestID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(constants.HeaderXRequestId, "req-1"))

	var seen string
	_, err := UnaryServerInterceptor()(ctx, nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
		seen, _ = ctx.Value(constants.ContextKeyRequestID).(string)
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "req-1", seen)
}

func TestUnaryServerInterceptor_MintsRequestID(t *testing.T) {
	var seen string
	_, _ = UnaryServerInterceptor()(context.Background(), nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
		seen = GetIDFromContext(ctx)
		return nil, nil
	})

	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "unknown", seen)
}

func TestUnaryClientInterceptor_PropagatesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-9")

	var md metadata.MD
	err := UnaryClientInterceptor()(ctx, "/m", nil, nil, nil,
		func(ctx context.Context, _ string, _, _ interface{}, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
			md, _ = metadata.FromOutgoingContext(ctx)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"req-9"}, md.Get(constants.HeaderXRequestId))
}

func TestGetIDFromContext_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", GetIDFromContext(context.Background()))
}

func TestLoggingServerInterceptor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithRequestID(context.Background(), "req-3")

	_, err := LoggingServerInterceptor(log)(ctx, nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "method=/grpc.health.v1.Health/Check")
	assert.Contains(t, buf.String(), "request_id=req-3")
	assert.Contains(t, buf.String(), "code=OK")
}
