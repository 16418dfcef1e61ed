package grpcx

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthFollowsProbe(t *testing.T) {
	lis := bufconn.Listen(1 << 20)

	var seenHeader atomic.Value
	capture := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-node"); len(v) > 0 {
				seenHeader.Store(v[0])
			}
		}
		return handler(ctx, req)
	}
	gs := NewServer(ServerConfig{UnaryTimeout: time.Second}, capture)

	var healthy atomic.Bool
	healthy.Store(true)
	hr := RegisterHealth(gs, func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("db down")
	})
	go gs.Serve(lis)
	defer gs.Stop()

	conn, err := Dial(ClientConfig{
		Target:         "passthrough:///bufnet",
		DefaultHeaders: map[string]string{"x-node": "n1"},
		Dialer:         func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) },
	})
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx := context.Background()
	hr.Probe(ctx)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	assert.Equal(t, "n1", seenHeader.Load())

	healthy.Store(false)
	hr.Probe(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
