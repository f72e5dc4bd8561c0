package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrSchemaUnavailable indicates the node catalog could not be fetched.
var ErrSchemaUnavailable = errors.New("schema catalog unavailable")

// IsSchemaUnavailable checks if an error indicates a catalog fetch failure.
func IsSchemaUnavailable(err error) bool {
	return errors.Is(err, ErrSchemaUnavailable)
}

// Fetcher retrieves the raw object-info document from the job engine.
type Fetcher interface {
	ObjectInfo(ctx context.Context) ([]byte, error)
}

// Cache stores the raw object-info document between fetches.
type Cache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, data []byte) error
}

// Catalog serves schema snapshots, fetching from the engine on cache miss.
type Catalog struct {
	fetcher Fetcher
	cache   Cache
	logger  *slog.Logger
}

// NewCatalog creates a catalog. A nil cache fetches on every snapshot.
func NewCatalog(fetcher Fetcher, cache Cache, logger *slog.Logger) *Catalog {
	return &Catalog{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger.With("module", "schema_catalog"),
	}
}

// Snapshot returns the current catalog, served from cache when possible.
func (c *Catalog) Snapshot(ctx context.Context) (Snapshot, error) {
	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "Schema cache read failed, fetching from engine", "error", err)
		}

		if ok {
			snapshot, err := ParseObjectInfo(data)
			if err == nil {
				return snapshot, nil
			}

			c.logger.WarnContext(ctx, "Discarding undecodable cached schema", "error", err)
		}
	}

	return c.Refresh(ctx)
}

// Refresh fetches the catalog from the engine and repopulates the cache.
func (c *Catalog) Refresh(ctx context.Context) (Snapshot, error) {
	data, err := c.fetcher.ObjectInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}

	snapshot, degraded, err := parseObjectInfo(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}

	for nodeType, err := range degraded {
		c.logger.WarnContext(ctx, "Unusable node type in schema, treating it as having no required inputs",
			"node_type", nodeType, "error", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, data); err != nil {
			c.logger.WarnContext(ctx, "Schema cache write failed", "error", err)
		}
	}

	c.logger.DebugContext(ctx, "Schema catalog refreshed", "node_types", len(snapshot))

	return snapshot, nil
}
