package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/domain"
)

type countingSearcher struct {
	calls atomic.Int64
	err   error
	gate  chan struct{}
}

func (s *countingSearcher) Name() string { return "counting" }

func (s *countingSearcher) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return sampleResponse(req.Query), nil
}

func TestCachedSearcherHit(t *testing.T) {
	inner := &countingSearcher{}
	s := NewCachedSearcher(inner, NewMemoryCache(10), time.Minute, slog.Default())
	ctx := context.Background()

	for range 3 {
		resp, err := s.Search(ctx, domain.SearchRequest{Query: "q"})
		require.NoError(t, err)
		assert.Equal(t, "q", resp.Query)
	}
	assert.Equal(t, int64(1), inner.calls.Load())

	_, err := s.Search(ctx, domain.SearchRequest{Query: "q", Layout: "bing/2024"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load(), "layout is part of the key")
}

func TestCachedSearcherDoesNotCacheFailures(t *testing.T) {
	inner := &countingSearcher{err: domain.ErrSearchBlocked}
	s := NewCachedSearcher(inner, NewMemoryCache(10), time.Minute, slog.Default())

	for range 2 {
		_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrSearchBlocked)
	}
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedSearcherCollapsesConcurrent(t *testing.T) {
	inner := &countingSearcher{gate: make(chan struct{})}
	s := NewCachedSearcher(inner, NewMemoryCache(10), time.Minute, slog.Default())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Search(context.Background(), domain.SearchRequest{Query: "same"})
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedSearcherCallerCancel(t *testing.T) {
	inner := &countingSearcher{gate: make(chan struct{})}
	defer close(inner.gate)
	s := NewCachedSearcher(inner, NewMemoryCache(10), time.Minute, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := s.Search(ctx, domain.SearchRequest{Query: "q"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCachedSearcherForwardsLayouts(t *testing.T) {
	reg, err := NewRegistry("google/2024", BuiltinLayouts()...)
	require.NoError(t, err)
	bs, err := NewBrowserSearcher(&leaser{tab: &scriptedTab{}}, reg, BrowserConfig{}, slog.Default())
	require.NoError(t, err)

	assert.Same(t, reg, NewCachedSearcher(bs, NewMemoryCache(1), 0, slog.Default()).Layouts())
	assert.Nil(t, NewCachedSearcher(&countingSearcher{}, NewMemoryCache(1), 0, slog.Default()).Layouts())
}
