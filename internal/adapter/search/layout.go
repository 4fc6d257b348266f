// Package search implements the searchers behind the search proxy: a
// headless-browser scraper driven by versioned extraction layouts, a
// SearXNG client, a result cache, and the HTTP client used by chat.
package search

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"scoutchat/internal/domain"
)

// Layout describes how to search one engine and read its results page.
// Names are versioned ("google/2024") so a markup change ships as a new
// layout next to the old one.
type Layout interface {
	Name() string
	// SearchURL returns the results page URL for query.
	SearchURL(query string) string
	// ReadySelector matches once the results container has rendered.
	ReadySelector() string
	// ExtractScript evaluates to [{title, snippet, url}] in page order.
	ExtractScript() string
	// BlockedScript evaluates to true when the engine served a challenge
	// page instead of results.
	BlockedScript() string
}

// SelectorLayout is a Layout defined entirely by CSS selectors.
type SelectorLayout struct {
	ID       string
	BaseURL  string // the escaped query is appended verbatim
	Ready    string
	Result   string
	Title    string
	Snippet  string
	Link     string
	Blocked  []string // selectors present only on challenge pages
	BlockURL []string // substrings of location.href on challenge pages
}

func (l SelectorLayout) Name() string          { return l.ID }
func (l SelectorLayout) ReadySelector() string { return l.Ready }

// SearchURL escapes query the way encodeURIComponent does for the
// characters that matter in a query string.
func (l SelectorLayout) SearchURL(query string) string {
	return l.BaseURL + strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
}

func (l SelectorLayout) ExtractScript() string {
	return fmt.Sprintf(`(() => Array.from(document.querySelectorAll(%s), (el) => {
	const text = (sel) => {
		if (!sel) return '';
		const n = el.querySelector(sel);
		return (n && n.textContent) || '';
	};
	const link = %s ? el.querySelector(%s) : null;
	return { title: text(%s), snippet: text(%s), url: (link && link.href) || '' };
}))()`, jsString(l.Result), jsString(l.Link), jsString(l.Link), jsString(l.Title), jsString(l.Snippet))
}

func (l SelectorLayout) BlockedScript() string {
	return fmt.Sprintf(`(() => %s.some((s) => document.querySelector(s) !== null) || %s.some((p) => location.href.includes(p)))()`,
		jsArray(l.Blocked), jsArray(l.BlockURL))
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsArray(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

// Built-in layouts.
var (
	GoogleLayout = SelectorLayout{
		ID:       "google/2024",
		BaseURL:  "https://www.google.com/search?q=",
		Ready:    "#search",
		Result:   "#search .g",
		Title:    "h3",
		Snippet:  ".VwiC3b",
		Link:     "a",
		Blocked:  []string{"#captcha-form", "form[action*='sorry']"},
		BlockURL: []string{"/sorry/"},
	}

	BingLayout = SelectorLayout{
		ID:       "bing/2024",
		BaseURL:  "https://www.bing.com/search?q=",
		Ready:    "#b_results",
		Result:   "#b_results > li.b_algo",
		Title:    "h2",
		Snippet:  ".b_caption p",
		Link:     "h2 a",
		Blocked:  []string{"#b_captcha"},
		BlockURL: []string{"/challenge"},
	}

	DuckDuckGoLayout = SelectorLayout{
		ID:      "duckduckgo-html/2024",
		BaseURL: "https://html.duckduckgo.com/html/?q=",
		Ready:   "#links",
		Result:  "#links .result",
		Title:   ".result__a",
		Snippet: ".result__snippet",
		Link:    ".result__a",
		Blocked: []string{".anomaly-modal__modal"},
	}
)

// BuiltinLayouts returns every layout shipped with scoutchat.
func BuiltinLayouts() []Layout {
	return []Layout{GoogleLayout, BingLayout, DuckDuckGoLayout}
}

// Registry holds the layouts a searcher may use, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	layouts map[string]Layout
	def     string
}

// NewRegistry registers layouts and selects defaultName as the default.
func NewRegistry(defaultName string, layouts ...Layout) (*Registry, error) {
	r := &Registry{layouts: make(map[string]Layout, len(layouts))}
	for _, l := range layouts {
		if err := r.Register(l); err != nil {
			return nil, err
		}
	}
	if _, ok := r.layouts[defaultName]; !ok {
		return nil, domain.NewDomainError("search.registry", domain.ErrLayoutNotFound, defaultName)
	}
	r.def = defaultName
	return r, nil
}

// Register adds l. Names must be unique.
func (r *Registry) Register(l Layout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.layouts[l.Name()]; dup {
		return fmt.Errorf("layout %q already registered", l.Name())
	}
	r.layouts[l.Name()] = l
	return nil
}

// Get returns the named layout; an empty name selects the default.
func (r *Registry) Get(name string) (Layout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.def
	}
	l, ok := r.layouts[name]
	if !ok {
		return nil, domain.NewDomainError("search.registry", domain.ErrLayoutNotFound, name)
	}
	return l, nil
}

// Names lists registered layouts in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.layouts))
	for n := range r.layouts {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Default returns the default layout name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}
