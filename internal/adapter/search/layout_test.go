package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/domain"
)

func TestGoogleLayoutSearchURL(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"weather today", "https://www.google.com/search?q=weather%20today"},
		{"c++ & go", "https://www.google.com/search?q=c%2B%2B%20%26%20go"},
		{"北京天气", "https://www.google.com/search?q=%E5%8C%97%E4%BA%AC%E5%A4%A9%E6%B0%94"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, GoogleLayout.SearchURL(tt.query))
		})
	}
}

func TestSelectorLayoutScripts(t *testing.T) {
	extract := GoogleLayout.ExtractScript()
	assert.Contains(t, extract, `document.querySelectorAll("#search .g")`)
	assert.Contains(t, extract, `text("h3")`)
	assert.Contains(t, extract, `text(".VwiC3b")`)

	blocked := GoogleLayout.BlockedScript()
	assert.Contains(t, blocked, `["#captcha-form","form[action*='sorry']"]`)
	assert.Contains(t, blocked, `["/sorry/"]`)
}

func TestSelectorLayoutBlockedScriptNoURLs(t *testing.T) {
	assert.Contains(t, DuckDuckGoLayout.BlockedScript(), "[].some(")
}

func TestSelectorLayoutQuotesSelectors(t *testing.T) {
	l := SelectorLayout{ID: "x", Result: `div[data-x="a"]`}
	assert.Contains(t, l.ExtractScript(), `"div[data-x=\"a\"]"`)
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry("google/2024", BuiltinLayouts()...)
	require.NoError(t, err)

	assert.Equal(t, "google/2024", r.Default())
	assert.Equal(t, []string{"bing/2024", "duckduckgo-html/2024", "google/2024"}, r.Names())

	l, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "google/2024", l.Name())

	l, err = r.Get("bing/2024")
	require.NoError(t, err)
	assert.Equal(t, "#b_results", l.ReadySelector())

	_, err = r.Get("yahoo/1999")
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
	assert.Equal(t, domain.CodeLayoutNotFound, domain.ErrorCodeOf(err))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r, err := NewRegistry("google/2024", GoogleLayout)
	require.NoError(t, err)
	assert.Error(t, r.Register(GoogleLayout))
}

func TestRegistryUnknownDefault(t *testing.T) {
	_, err := NewRegistry("missing", GoogleLayout)
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
}
