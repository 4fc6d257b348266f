package config

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateSearch(cfg, ve)
	validateLLM(cfg, ve)
	validateChat(cfg, ve)
	validateLogger(cfg, ve)
	validateTelemetry(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Addr == "" {
		ve.Add("server.addr must not be empty")
	}
	if s.MaxBodyBytes <= 0 {
		ve.Add("server.max_body_bytes must be > 0")
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerMinute <= 0 {
			ve.Add("server.rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.Burst <= 0 {
			ve.Add("server.rate_limit.burst must be > 0 when rate limiting is enabled")
		}
	}
}

var validSearchBackends = map[string]bool{"browser": true, "searxng": true}

var validBrowserModes = map[string]bool{"shared": true, "isolated": true}

var validCacheBackends = map[string]bool{"none": true, "memory": true, "sqlite": true}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if !validSearchBackends[s.Backend] {
		ve.Add("search.backend %q is invalid (want browser or searxng)", s.Backend)
	}
	if s.Timeout <= 0 {
		ve.Add("search.timeout must be > 0")
	}
	if s.MaxResults < 0 {
		ve.Add("search.max_results must be >= 0")
	}

	switch s.Backend {
	case "browser":
		if s.Layout == "" {
			ve.Add("search.layout must not be empty for the browser backend")
		}
		if !validBrowserModes[s.Browser.Mode] {
			ve.Add("search.browser.mode %q is invalid (want shared or isolated)", s.Browser.Mode)
		}
		if s.Browser.MaxConcurrent <= 0 {
			ve.Add("search.browser.max_concurrent must be > 0")
		}
		if s.Browser.AcquireTimeout <= 0 {
			ve.Add("search.browser.acquire_timeout must be > 0")
		}
		if s.Browser.RemoteURL != "" {
			validateURL(ve, "search.browser.remote_url", s.Browser.RemoteURL, "ws", "wss", "http", "https")
		}
	case "searxng":
		if s.SearXNG.URL == "" {
			ve.Add("search.searxng.url is required when search.backend is searxng")
		} else {
			validateURL(ve, "search.searxng.url", s.SearXNG.URL, "http", "https")
		}
	}

	if !validCacheBackends[s.Cache.Backend] {
		ve.Add("search.cache.backend %q is invalid (want none, memory or sqlite)", s.Cache.Backend)
	}
	if s.Cache.Backend != "none" && s.Cache.TTL <= 0 {
		ve.Add("search.cache.ttl must be > 0 when caching is enabled")
	}
	if s.Cache.Backend == "sqlite" && s.Cache.Path == "" {
		ve.Add("search.cache.path is required for the sqlite cache")
	}
}

func validateLLM(cfg *Config, ve *ValidationError) {
	l := cfg.LLM
	if l.BaseURL == "" {
		ve.Add("llm.base_url must not be empty")
	} else {
		validateURL(ve, "llm.base_url", l.BaseURL, "http", "https")
	}
	if l.Model == "" {
		ve.Add("llm.model must not be empty")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		ve.Add("llm.temperature must be between 0 and 2, got %v", l.Temperature)
	}
	if l.MaxTokens <= 0 {
		ve.Add("llm.max_tokens must be > 0")
	}
	if l.CircuitBreaker.Enabled && l.CircuitBreaker.MaxFailures == 0 {
		ve.Add("llm.circuit_breaker.max_failures must be > 0 when enabled")
	}
}

func validateChat(cfg *Config, ve *ValidationError) {
	c := cfg.Chat
	if !c.LocalSearch {
		if c.SearchURL == "" {
			ve.Add("chat.search_url must not be empty unless chat.local_search is set")
		} else {
			validateURL(ve, "chat.search_url", c.SearchURL, "http", "https")
		}
	}
	for name, src := range map[string]string{
		"chat.prompt.augmented": c.Prompt.Augmented,
		"chat.prompt.fallback":  c.Prompt.Fallback,
	} {
		if src == "" {
			ve.Add("%s must not be empty", name)
			continue
		}
		if _, err := template.New(name).Option("missingkey=error").Parse(src); err != nil {
			ve.Add("%s: %v", name, err)
		}
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	l := cfg.Logger
	if !validLogLevels[strings.ToLower(l.Level)] {
		ve.Add("logger.level %q is invalid", l.Level)
	}
	if l.Format != "text" && l.Format != "json" {
		ve.Add("logger.format %q is invalid (want text or json)", l.Format)
	}
}

var validExporters = map[string]bool{"noop": true, "stdout": true}

func validateTelemetry(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want noop or stdout)", cfg.Tracer.Exporter)
	}
	if cfg.Metrics.Enabled {
		if !validExporters[cfg.Metrics.Exporter] {
			ve.Add("metrics.exporter %q is invalid (want noop or stdout)", cfg.Metrics.Exporter)
		}
		if cfg.Metrics.Interval <= 0 {
			ve.Add("metrics.interval must be > 0 when metrics are enabled")
		}
	}
}

func validateURL(ve *ValidationError, field, raw string, schemes ...string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		ve.Add("%s %q is not a valid URL", field, raw)
		return
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return
		}
	}
	ve.Add("%s scheme %q is not allowed (want one of %s)", field, u.Scheme, strings.Join(schemes, ", "))
}
