package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/oneapi/pkg/schema"
)

// NewSchemaCache returns a Redis-backed cache when redisURL is set and an
// in-process cache otherwise. The returned close function releases the
// Redis connection.
func NewSchemaCache(ctx context.Context, redisURL string, ttl time.Duration) (schema.Cache, func() error, error) {
	if redisURL == "" {
		return schema.NewMemoryCache(ttl), func() error { return nil }, nil
	}

	client, err := schema.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect schema cache: %w", err)
	}

	return schema.NewRedisCache(client, schema.DefaultRedisKey, ttl), client.Close, nil
}
