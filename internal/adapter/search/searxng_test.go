package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func newTestSearXNG(t *testing.T, url string, maxResults int) *SearXNGSearcher {
	t.Helper()
	s, err := NewSearXNGSearcher(url, 0, maxResults, slog.Default())
	require.NoError(t, err)
	return s
}

func TestSearXNGSearcherTrailingSlashTrimmed(t *testing.T) {
	s := newTestSearXNG(t, "http://localhost:8888/", 0)
	assert.Equal(t, "http://localhost:8888", s.instanceURL)
	assert.Equal(t, "searxng", s.Name())
}

func TestSearXNGSearcherSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "golang testing", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"results":[
			{"title":"Go Testing","url":"https://go.dev/testing","content":"Testing in Go"},
			{"title":"Second","url":"https://example.com","content":"More"}
		]}`)
	}))
	defer srv.Close()

	resp, err := newTestSearXNG(t, srv.URL, 0).Search(context.Background(), domain.SearchRequest{Query: "golang testing"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://go.dev/testing", resp.Results[0].URL)
	assert.Equal(t, "Go Testing\nTesting in Go\n\nSecond\nMore\n\n", resp.Content)
	assert.Equal(t, "searxng", resp.Layout)
}

func TestSearXNGSearcherMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"title":"a"},{"title":"b"},{"title":"c"}]}`)
	}))
	defer srv.Close()

	resp, err := newTestSearXNG(t, srv.URL, 1).Search(context.Background(), domain.SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestSearXNGSearcherFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.ErrorCode
	}{
		{"server error", http.StatusInternalServerError, "oops", domain.CodeSearchFailed},
		{"rate limited", http.StatusTooManyRequests, "", domain.CodeSearchBlocked},
		{"bad json", http.StatusOK, "{not json", domain.CodeSearchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestSearXNG(t, srv.URL, 0).Search(context.Background(), domain.SearchRequest{Query: "q"})
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.ErrorCodeOf(err))
		})
	}
}

func TestSearXNGSearcherUnreachable(t *testing.T) {
	s := newTestSearXNG(t, "http://localhost:8888", 0)
	s.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})}

	_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrSearchUnreachable)
}

func TestSearXNGSearcherBodyLimit(t *testing.T) {
	s := newTestSearXNG(t, "http://localhost:8888", 0)
	s.client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		big := `{"results":[{"title":"` + strings.Repeat("x", maxSearchBodySize) + `"}]}`
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(big)), Header: make(http.Header)}, nil
	})}

	_, err := s.Search(context.Background(), domain.SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrSearchFailed, "truncated body must not parse")
}
