//go:build integration

package schema

import (
	"context"
	"fmt"
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
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisCache(t *testing.T) {
	url := startRedis(t)

	client, err := NewRedisClient(t.Context(), url)
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	cache := NewRedisCache(client, "", time.Minute)

	_, ok, err := cache.Get(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(t.Context(), []byte(objectInfoFixture)))

	data, ok, err := cache.Get(t.Context())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, objectInfoFixture, string(data))

	ttl, err := client.TTL(t.Context(), DefaultRedisKey).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
