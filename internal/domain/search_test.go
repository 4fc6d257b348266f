package domain

import "testing"

func TestFormatResults(t *testing.T) {
	got := FormatResults([]SearchResult{
		{Title: "Forecast", Snippet: "Sunny, 20C"},
		{Title: "", Snippet: "no title"},
	})
	want := "Forecast\nSunny, 20C\n\n\nno title\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestNewSearchResponse(t *testing.T) {
	resp := NewSearchResponse("q", "google/2024", nil)
	if resp.Results == nil {
		t.Error("Results should be non-nil so it encodes as []")
	}
	if resp.Content != "" || resp.Layout != "google/2024" || resp.Query != "q" {
		t.Errorf("unexpected response %+v", resp)
	}
}
