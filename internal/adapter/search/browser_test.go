package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/adapter/browser"
	"scoutchat/internal/domain"
)

// scriptedTab plays back canned results for each page step.
type scriptedTab struct {
	navErr    error
	waitErr   error
	evalErr   error
	waitBlock bool // WaitReady blocks until ctx ends
	blocked   bool
	results   []domain.SearchResult
	navigated string
	waitedFor string
	evaluated []string
}

func (t *scriptedTab) Navigate(_ context.Context, url string) error {
	t.navigated = url
	return t.navErr
}

func (t *scriptedTab) WaitReady(ctx context.Context, sel string) error {
	t.waitedFor = sel
	if t.waitBlock {
		<-ctx.Done()
		return ctx.Err()
	}
	return t.waitErr
}

func (t *scriptedTab) Evaluate(_ context.Context, expr string, out any) error {
	t.evaluated = append(t.evaluated, expr)
	switch v := out.(type) {
	case *bool:
		*v = t.blocked
		return nil
	case *[]domain.SearchResult:
		if t.evalErr != nil {
			return t.evalErr
		}
		*v = t.results
		return nil
	}
	return errors.New("unexpected out type")
}

func (t *scriptedTab) Close() error { return nil }

// leaser hands out a single scripted tab without a pool.
type leaser struct {
	tab   *scriptedTab
	err   error
	calls int
}

func (l *leaser) Do(ctx context.Context, fn func(context.Context, browser.Tab) error) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	return fn(ctx, l.tab)
}

func newTestBrowserSearcher(t *testing.T, tabs TabLeaser, cfg BrowserConfig) *BrowserSearcher {
	t.Helper()
	reg, err := NewRegistry("google/2024", BuiltinLayouts()...)
	require.NoError(t, err)
	s, err := NewBrowserSearcher(tabs, reg, cfg, slog.Default())
	require.NoError(t, err)
	return s
}

func TestBrowserSearcherSuccess(t *testing.T) {
	tab := &scriptedTab{results: []domain.SearchResult{
		{Title: "Forecast", Snippet: "Sunny, 20C", URL: "https://example.com"},
		{Title: "Radar", Snippet: ""},
	}}
	s := newTestBrowserSearcher(t, &leaser{tab: tab}, BrowserConfig{})

	resp, err := s.Search(context.Background(), domain.SearchRequest{Query: "weather today"})
	require.NoError(t, err)

	assert.Equal(t, "https://www.google.com/search?q=weather%20today", tab.navigated)
	assert.Equal(t, "#search", tab.waitedFor)
	assert.Equal(t, "google/2024", resp.Layout)
	assert.Equal(t, "Forecast\nSunny, 20C\n\nRadar\n\n\n", resp.Content)
	assert.Len(t, resp.Results, 2)
}

func TestBrowserSearcherEmptyPage(t *testing.T) {
	s := newTestBrowserSearcher(t, &leaser{tab: &scriptedTab{}}, BrowserConfig{})

	resp, err := s.Search(context.Background(), domain.SearchRequest{Query: "nothing"})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content)
	assert.NotNil(t, resp.Results)
}

func TestBrowserSearcherMaxResults(t *testing.T) {
	tab := &scriptedTab{results: []domain.SearchResult{{Title: "a"}, {Title: "b"}, {Title: "c"}}}
	s := newTestBrowserSearcher(t, &leaser{tab: tab}, BrowserConfig{MaxResults: 2})

	resp, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestBrowserSearcherLayoutSelection(t *testing.T) {
	tab := &scriptedTab{}
	s := newTestBrowserSearcher(t, &leaser{tab: tab}, BrowserConfig{})

	resp, err := s.Search(context.Background(), domain.SearchRequest{Query: "q", Layout: "bing/2024"})
	require.NoError(t, err)
	assert.Equal(t, "bing/2024", resp.Layout)
	assert.Equal(t, "https://www.bing.com/search?q=q", tab.navigated)
}

func TestBrowserSearcherUnknownLayout(t *testing.T) {
	l := &leaser{tab: &scriptedTab{}}
	s := newTestBrowserSearcher(t, l, BrowserConfig{})

	_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q", Layout: "nope"})
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
	assert.Zero(t, l.calls, "no tab should be leased")
}

func TestBrowserSearcherFailures(t *testing.T) {
	tests := []struct {
		name string
		tab  *scriptedTab
		want domain.ErrorCode
	}{
		{"navigation", &scriptedTab{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}, domain.CodeSearchUnreachable},
		{"blocked after navigation", &scriptedTab{blocked: true}, domain.CodeSearchBlocked},
		{"selector missing", &scriptedTab{waitErr: errors.New("not found")}, domain.CodeSearchFailed},
		{"extract", &scriptedTab{evalErr: errors.New("script error")}, domain.CodeSearchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestBrowserSearcher(t, &leaser{tab: tt.tab}, BrowserConfig{})
			_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.ErrorCodeOf(err))
		})
	}
}

func TestBrowserSearcherTimeout(t *testing.T) {
	s := newTestBrowserSearcher(t, &leaser{tab: &scriptedTab{waitBlock: true}}, BrowserConfig{Timeout: 20 * time.Millisecond})

	_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, domain.CodeSearchTimeout, domain.ErrorCodeOf(err))
}

func TestBrowserSearcherPoolError(t *testing.T) {
	full := domain.NewSubSystemError("browser", "browser.acquire", domain.ErrLimitReached, "")
	s := newTestBrowserSearcher(t, &leaser{err: full}, BrowserConfig{})

	_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
	assert.Equal(t, domain.CodeBrowserPoolFull, domain.ErrorCodeOf(err))
}
