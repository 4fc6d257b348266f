package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"scoutchat/internal/domain"
)

const defaultCacheTTL = 15 * time.Minute

// LayoutProvider is implemented by searchers that resolve named layouts.
type LayoutProvider interface {
	Layouts() *Registry
}

// CachedSearcher serves repeated queries from a Cache and collapses
// concurrent identical queries into one upstream search. Failures are
// never cached.
type CachedSearcher struct {
	next   domain.Searcher
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedSearcher wraps next. ttl <= 0 uses 15 minutes.
func NewCachedSearcher(next domain.Searcher, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedSearcher {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSearcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (s *CachedSearcher) Name() string { return s.next.Name() }

// Layouts forwards to the wrapped searcher, or returns nil.
func (s *CachedSearcher) Layouts() *Registry {
	if lp, ok := s.next.(LayoutProvider); ok {
		return lp.Layouts()
	}
	return nil
}

func (s *CachedSearcher) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	key := req.Layout + "\x00" + req.Query

	if resp, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("search cache read failed", "error", err)
	} else if ok {
		s.logger.Debug("search cache hit", "layout", resp.Layout)
		return resp, nil
	}

	// The shared search must outlive any single caller; each caller still
	// stops waiting when its own ctx ends.
	ch := s.group.DoChan(key, func() (any, error) {
		resp, err := s.next.Search(context.WithoutCancel(ctx), req)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Put(context.WithoutCancel(ctx), key, resp, s.ttl); err != nil {
			s.logger.Warn("search cache write failed", "error", err)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, domain.WrapOp("search.cached", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*domain.SearchResponse), nil
	}
}

// Close releases the cache.
func (s *CachedSearcher) Close() error {
	return s.cache.Close()
}
