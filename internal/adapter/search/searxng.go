package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

const (
	maxSearchBodySize = 512 * 1024 // 512KB
	searxngLayout     = "searxng"
)

// searxngResponse models the relevant portion of the SearXNG JSON response.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// SearXNGSearcher searches through a SearXNG instance's JSON API. It needs no
// browser, so it suits hosts where Chrome is unavailable.
type SearXNGSearcher struct {
	client      *http.Client
	instanceURL string
	maxResults  int
	logger      *slog.Logger
	metrics     *searchMetrics
}

// NewSearXNGSearcher creates a searcher backed by the instance at instanceURL.
func NewSearXNGSearcher(instanceURL string, timeout time.Duration, maxResults int, logger *slog.Logger) (*SearXNGSearcher, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	m, err := newSearchMetrics()
	if err != nil {
		return nil, err
	}
	return &SearXNGSearcher{
		client:      &http.Client{Timeout: timeout},
		instanceURL: strings.TrimRight(instanceURL, "/"),
		maxResults:  maxResults,
		logger:      logger,
		metrics:     m,
	}, nil
}

func (s *SearXNGSearcher) Name() string { return "searxng" }

// Search ignores req.Layout; SearXNG results are already structured.
func (s *SearXNGSearcher) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	ctx, span := tracer.StartSpan(ctx, tracer.SpanSearchQuery,
		trace.WithAttributes(tracer.StringAttr("search.searcher", s.Name())),
	)
	defer span.End()

	start := time.Now()
	results, err := s.query(ctx, req.Query)
	s.metrics.record(ctx, s.Name(), searxngLayout, err, time.Since(start))
	if err != nil {
		tracer.RecordError(span, err)
		s.logger.Warn("searxng search failed", "code", domain.ErrorCodeOf(err), "error", err)
		return nil, err
	}

	tracer.SetOK(span)
	s.logger.Debug("searxng search completed", "results", len(results), "elapsed", time.Since(start))
	return domain.NewSearchResponse(req.Query, searxngLayout, results), nil
}

func (s *SearXNGSearcher) query(ctx context.Context, query string) ([]domain.SearchResult, error) {
	const op = "search.searxng"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.instanceURL+"/search", nil)
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, err.Error())
	}
	q := httpReq.URL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("pageno", "1")
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		switch {
		case isTimeout(err):
			return nil, domain.NewSubSystemError("search", op, domain.ErrTimeout, err.Error())
		case ctx.Err() != nil:
			return nil, domain.WrapOp(op, ctx.Err())
		}
		return nil, domain.NewDomainError(op, domain.ErrSearchUnreachable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, "read response: "+err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
		return nil, domain.NewDomainError(op, domain.ErrSearchBlocked, fmt.Sprintf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body))
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.NewDomainError(op, domain.ErrSearchFailed, "parse response: "+err.Error())
	}

	results := make([]domain.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if s.maxResults > 0 && len(results) >= s.maxResults {
			break
		}
		results = append(results, domain.SearchResult{Title: r.Title, Snippet: r.Content, URL: r.URL})
	}
	return results, nil
}

// isTimeout reports whether an HTTP client error was a deadline, either the
// caller's or the client's own Timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
