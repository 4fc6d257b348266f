package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr must not be empty"},
		{"rate limit rpm", func(c *Config) { c.Server.RateLimit.RequestsPerMinute = 0 }, "server.rate_limit.requests_per_minute"},
		{"search backend", func(c *Config) { c.Search.Backend = "yahoo" }, `search.backend "yahoo" is invalid`},
		{"search timeout", func(c *Config) { c.Search.Timeout = 0 }, "search.timeout must be > 0"},
		{"max results", func(c *Config) { c.Search.MaxResults = -1 }, "search.max_results must be >= 0"},
		{"browser mode", func(c *Config) { c.Search.Browser.Mode = "pooled" }, `search.browser.mode "pooled" is invalid`},
		{"pool size", func(c *Config) { c.Search.Browser.MaxConcurrent = 0 }, "search.browser.max_concurrent must be > 0"},
		{"remote url scheme", func(c *Config) { c.Search.Browser.RemoteURL = "ftp://chrome:9222" }, "search.browser.remote_url scheme"},
		{"searxng url", func(c *Config) { c.Search.Backend = "searxng" }, "search.searxng.url is required"},
		{"cache backend", func(c *Config) { c.Search.Cache.Backend = "redis" }, `search.cache.backend "redis" is invalid`},
		{"cache ttl", func(c *Config) { c.Search.Cache.TTL = 0 }, "search.cache.ttl must be > 0"},
		{"sqlite path", func(c *Config) { c.Search.Cache.Backend = "sqlite"; c.Search.Cache.Path = "" }, "search.cache.path is required"},
		{"llm base url", func(c *Config) { c.LLM.BaseURL = "not a url" }, "llm.base_url"},
		{"llm model", func(c *Config) { c.LLM.Model = "" }, "llm.model must not be empty"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature must be between 0 and 2"},
		{"max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "llm.max_tokens must be > 0"},
		{"breaker failures", func(c *Config) { c.LLM.CircuitBreaker.MaxFailures = 0 }, "llm.circuit_breaker.max_failures"},
		{"chat search url", func(c *Config) { c.Chat.SearchURL = "" }, "chat.search_url must not be empty"},
		{"prompt syntax", func(c *Config) { c.Chat.Prompt.Augmented = "{{.Query" }, "chat.prompt.augmented"},
		{"prompt empty", func(c *Config) { c.Chat.Prompt.Fallback = "" }, "chat.prompt.fallback must not be empty"},
		{"log level", func(c *Config) { c.Logger.Level = "verbose" }, `logger.level "verbose" is invalid`},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml" is invalid`},
		{"tracer exporter", func(c *Config) { c.Tracer.Enabled = true; c.Tracer.Exporter = "jaeger" }, `tracer.exporter "jaeger" is invalid`},
		{"metrics interval", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Interval = 0 }, "metrics.interval must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateLocalSearchSkipsSearchURL(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.SearchURL = ""
	cfg.Chat.LocalSearch = true
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Addr = ""
	cfg.LLM.Model = ""
	cfg.Search.Timeout = -time.Second
	err := Validate(cfg)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("want *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(ve.Errors), ve.Errors)
	}
}
