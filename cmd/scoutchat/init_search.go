package main

import (
	"context"
	"fmt"
	"log/slog"

	"scoutchat/internal/adapter/browser"
	"scoutchat/internal/adapter/search"
	"scoutchat/internal/domain"
	"scoutchat/internal/infra/config"
)

// initLocalSearcher builds the in-process searcher described by
// cfg.Search: browser or SearXNG, wrapped in the configured cache.
// Everything it opens is registered on a for shutdown.
func (a *app) initLocalSearcher() (domain.Searcher, error) {
	cfg := a.cfg.Search

	base, err := a.initBackend(cfg)
	if err != nil {
		return nil, err
	}

	cache, err := newCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	if cache == nil {
		return base, nil
	}

	cached := search.NewCachedSearcher(base, cache, cfg.Cache.TTL, a.log)
	a.onClose(func(context.Context) error { return cached.Close() })
	a.log.Info("search cache enabled", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
	return cached, nil
}

func (a *app) initBackend(cfg config.SearchConfig) (domain.Searcher, error) {
	if cfg.Backend == "searxng" {
		s, err := search.NewSearXNGSearcher(cfg.SearXNG.URL, cfg.SearXNG.Timeout, cfg.MaxResults, a.log)
		if err != nil {
			return nil, fmt.Errorf("searxng: %w", err)
		}
		return s, nil
	}

	layouts, err := search.NewRegistry(cfg.Layout, search.BuiltinLayouts()...)
	if err != nil {
		return nil, fmt.Errorf("layouts: %w", err)
	}

	pool, err := browser.NewPool(newLauncher(cfg.Browser, a.log), browser.PoolConfig{
		MaxConcurrent:  cfg.Browser.MaxConcurrent,
		AcquireTimeout: cfg.Browser.AcquireTimeout,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("browser pool: %w", err)
	}
	a.onClose(func(context.Context) error { return pool.Close() })

	s, err := search.NewBrowserSearcher(pool, layouts, search.BrowserConfig{
		Timeout:    cfg.Timeout,
		MaxResults: cfg.MaxResults,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("browser searcher: %w", err)
	}
	return s, nil
}

func newLauncher(cfg config.BrowserConfig, logger *slog.Logger) browser.Launcher {
	chrome := browser.ChromeConfig{
		RemoteURL:    cfg.RemoteURL,
		Headless:     cfg.Headless,
		UserAgent:    cfg.UserAgent,
		StartTimeout: cfg.StartTimeout,
	}
	if cfg.Mode == "isolated" {
		return browser.NewIsolatedLauncher(chrome, logger)
	}
	return browser.NewSharedLauncher(chrome, logger)
}

// newCache returns nil when caching is off.
func newCache(cfg config.CacheConfig) (search.Cache, error) {
	switch cfg.Backend {
	case "memory":
		return search.NewMemoryCache(cfg.MaxEntries), nil
	case "sqlite":
		c, err := search.NewSQLiteCache(cfg.Path)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}

// initChatSearcher returns the searcher used by web mode: the remote
// search proxy, or the local stack when local is set.
func (a *app) initChatSearcher(local bool) (domain.Searcher, error) {
	if local {
		return a.initLocalSearcher()
	}
	c, err := search.NewProxyClient(a.cfg.Chat.SearchURL, a.cfg.Chat.SearchTimeout, a.log)
	if err != nil {
		return nil, fmt.Errorf("search proxy client: %w", err)
	}
	return c, nil
}
