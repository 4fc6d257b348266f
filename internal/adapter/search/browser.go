package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"scoutchat/internal/adapter/browser"
	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

const (
	defaultSearchTimeout = 30 * time.Second
	blockedProbeTimeout  = 3 * time.Second
)

// TabLeaser hands out browser tabs for the duration of a callback.
// *browser.Pool satisfies it.
type TabLeaser interface {
	Do(ctx context.Context, fn func(ctx context.Context, tab browser.Tab) error) error
}

// BrowserConfig tunes a BrowserSearcher.
type BrowserConfig struct {
	Timeout    time.Duration // whole search, including waiting for a tab
	MaxResults int           // 0 keeps every result on the page
}

// BrowserSearcher scrapes a search engine results page through a headless
// browser: navigate, wait for the results container, extract.
type BrowserSearcher struct {
	tabs       TabLeaser
	layouts    *Registry
	timeout    time.Duration
	maxResults int
	logger     *slog.Logger
	metrics    *searchMetrics
}

// NewBrowserSearcher creates a searcher that leases tabs from tabs.
func NewBrowserSearcher(tabs TabLeaser, layouts *Registry, cfg BrowserConfig, logger *slog.Logger) (*BrowserSearcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSearchTimeout
	}
	m, err := newSearchMetrics()
	if err != nil {
		return nil, err
	}
	return &BrowserSearcher{
		tabs:       tabs,
		layouts:    layouts,
		timeout:    cfg.Timeout,
		maxResults: cfg.MaxResults,
		logger:     logger,
		metrics:    m,
	}, nil
}

func (s *BrowserSearcher) Name() string { return "browser" }

// Layouts exposes the registry the searcher resolves layout names against.
func (s *BrowserSearcher) Layouts() *Registry { return s.layouts }

func (s *BrowserSearcher) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	layout, err := s.layouts.Get(req.Layout)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, tracer.SpanSearchQuery,
		trace.WithAttributes(
			tracer.StringAttr("search.searcher", s.Name()),
			tracer.StringAttr("search.layout", layout.Name()),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var results []domain.SearchResult
	err = s.tabs.Do(ctx, func(ctx context.Context, tab browser.Tab) error {
		var err error
		results, err = s.scrape(ctx, tab, layout, req.Query)
		return err
	})
	s.metrics.record(ctx, s.Name(), layout.Name(), err, time.Since(start))
	if err != nil {
		tracer.RecordError(span, err)
		s.logger.Warn("browser search failed",
			"layout", layout.Name(),
			"code", domain.ErrorCodeOf(err),
			"error", err,
			"elapsed", time.Since(start),
		)
		return nil, err
	}

	if s.maxResults > 0 && len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	span.SetAttributes(tracer.IntAttr("search.results", len(results)))
	tracer.SetOK(span)
	s.logger.Debug("browser search completed", "layout", layout.Name(), "results", len(results), "elapsed", time.Since(start))

	return domain.NewSearchResponse(req.Query, layout.Name(), results), nil
}

// scrape runs the three page steps and classifies whichever one fails.
func (s *BrowserSearcher) scrape(ctx context.Context, tab browser.Tab, layout Layout, query string) ([]domain.SearchResult, error) {
	const op = "search.browser"

	if err := tab.Navigate(ctx, layout.SearchURL(query)); err != nil {
		if e := contextError(ctx, op, "navigating to results page"); e != nil {
			return nil, e
		}
		return nil, domain.NewDomainError(op, domain.ErrSearchUnreachable, err.Error())
	}
	if s.blocked(tab, layout) {
		return nil, domain.NewDomainError(op, domain.ErrSearchBlocked, layout.Name())
	}

	if err := tab.WaitReady(ctx, layout.ReadySelector()); err != nil {
		if s.blocked(tab, layout) {
			return nil, domain.NewDomainError(op, domain.ErrSearchBlocked, layout.Name())
		}
		if e := contextError(ctx, op, "waiting for "+layout.ReadySelector()); e != nil {
			return nil, e
		}
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, err.Error())
	}

	var results []domain.SearchResult
	if err := tab.Evaluate(ctx, layout.ExtractScript(), &results); err != nil {
		if e := contextError(ctx, op, "extracting results"); e != nil {
			return nil, e
		}
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, "extract: "+err.Error())
	}
	return results, nil
}

// blocked probes for a challenge page. It uses its own short deadline since
// the search context may already be spent.
func (s *BrowserSearcher) blocked(tab browser.Tab, layout Layout) bool {
	ctx, cancel := context.WithTimeout(context.Background(), blockedProbeTimeout)
	defer cancel()
	var blocked bool
	if err := tab.Evaluate(ctx, layout.BlockedScript(), &blocked); err != nil {
		return false
	}
	return blocked
}

// contextError maps an expired or cancelled search context onto a domain
// error, or returns nil while ctx is still live.
func contextError(ctx context.Context, op, stage string) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewSubSystemError("search", op, domain.ErrTimeout, stage)
	default:
		return domain.WrapOp(op, err)
	}
}
