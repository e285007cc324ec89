//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisStore(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb)

	_, ok, err := store.Get(ctx, "POST:/api/v1/attendance:k1")
	require.NoError(t, err)
	assert.False(t, ok)

	release, err := store.Acquire(ctx, "POST:/api/v1/attendance:k1", 5*time.Second)
	require.NoError(t, err)

	_, err = store.Acquire(ctx, "POST:/api/v1/attendance:k1", 5*time.Second)
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, store.Save(ctx, "POST:/api/v1/attendance:k1", &Response{
		Status:      201,
		ContentType: "application/json; charset=utf-8",
		Body:        []byte(`{"status":"present"}`),
		RequestHash: "9f86d081",
	}, time.Minute))
	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "releasing twice is tolerated")

	resp, ok, err := store.Get(ctx, "POST:/api/v1/attendance:k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"status":"present"}`, string(resp.Body))
	assert.Equal(t, "9f86d081", resp.RequestHash)
}
