package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/domain"
)

func sampleResponse(query string) *domain.SearchResponse {
	return domain.NewSearchResponse(query, "google/2024", []domain.SearchResult{
		{Title: "Forecast", Snippet: "Sunny, 20C", URL: "https://example.com"},
	})
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", sampleResponse("q"), time.Minute))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "q", got.Query)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestMemoryCacheBounded(t *testing.T) {
	c := NewMemoryCache(2)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", sampleResponse("a"), time.Minute))
	require.NoError(t, c.Put(ctx, "b", sampleResponse("b"), 2*time.Minute))
	require.NoError(t, c.Put(ctx, "c", sampleResponse("c"), 3*time.Minute))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok, "entry closest to expiry is evicted first")
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "search.db")
	c, err := NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleResponse("weather")
	require.NoError(t, c.Put(ctx, "k", want, time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Overwrite.
	require.NoError(t, c.Put(ctx, "k", sampleResponse("other"), time.Minute))
	got, _, _ = c.Get(ctx, "k")
	assert.Equal(t, "other", got.Query)
}

func TestSQLiteCacheExpiry(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	defer c.Close()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", sampleResponse("q"), time.Minute))
	now = now.Add(time.Hour)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCachePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.db")
	ctx := context.Background()

	c, err := NewSQLiteCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", sampleResponse("q"), time.Hour))
	require.NoError(t, c.Close())

	c, err = NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
