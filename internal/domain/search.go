package domain

import (
	"context"
	"strings"
)

// SearchRequest asks a Searcher for the results page of Query.
// An empty Layout selects the searcher's default extraction layout.
type SearchRequest struct {
	Query  string `json:"query"`
	Layout string `json:"layout,omitempty"`
}

// SearchResult is a single result block scraped from a results page.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url,omitempty"`
}

// SearchResponse carries the extracted results and their flattened text.
type SearchResponse struct {
	Query   string         `json:"query"`
	Layout  string         `json:"layout"`
	Results []SearchResult `json:"results"`
	Content string         `json:"content"`
}

// Searcher turns a query into search results.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Name() string
}

// FormatResults flattens results into the plain-text form consumed by the
// chat prompt: "title\nsnippet\n\n" per result, in page order.
func FormatResults(results []SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Title)
		b.WriteByte('\n')
		b.WriteString(r.Snippet)
		b.WriteString("\n\n")
	}
	return b.String()
}

// NewSearchResponse builds a SearchResponse with Content derived from results.
func NewSearchResponse(query, layout string, results []SearchResult) *SearchResponse {
	if results == nil {
		results = []SearchResult{}
	}
	return &SearchResponse{
		Query:   query,
		Layout:  layout,
		Results: results,
		Content: FormatResults(results),
	}
}
