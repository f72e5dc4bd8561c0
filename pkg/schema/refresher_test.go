package schema

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_InvalidSchedule(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(&fakeFetcher{data: []byte(objectInfoFixture)}, nil, slog.Default())
	refresher := NewRefresher(catalog, slog.Default())

	err := refresher.Start(t.Context(), "every few minutes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema refresh schedule")
}

func TestRefresher_RefreshNow(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{data: []byte(objectInfoFixture)}
	cache := NewMemoryCache(time.Hour)
	catalog := NewCatalog(fetcher, cache, slog.Default())
	refresher := NewRefresher(catalog, slog.Default())

	refresher.RefreshNow(t.Context())
	refresher.RefreshNow(t.Context())

	assert.Equal(t, int32(2), fetcher.calls.Load())

	_, err := catalog.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestRefresher_RefreshNowFailureKeepsRunning(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	refresher := NewRefresher(NewCatalog(fetcher, nil, slog.Default()), slog.Default())

	assert.NotPanics(t, func() { refresher.RefreshNow(t.Context()) })
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestRefresher_Schedule(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{data: []byte(objectInfoFixture)}
	refresher := NewRefresher(NewCatalog(fetcher, nil, slog.Default()), slog.Default())

	require.NoError(t, refresher.Start(t.Context(), "@every 1s"))
	t.Cleanup(refresher.Stop)

	assert.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, 5*time.Second, 50*time.Millisecond)
}
