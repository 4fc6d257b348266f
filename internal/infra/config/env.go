package config

import (
	"fmt"
	"time"

	env "github.com/netflix/go-env"

	"scoutchat/internal/domain"
)

// ConfigKeyEnv names the passphrase variable used to decrypt "enc:" values.
const ConfigKeyEnv = "SCOUTCHAT_CONFIG_KEY"

// envOverrides lists every SCOUTCHAT_* variable that overrides a config field.
type envOverrides struct {
	ServerAddr string `env:"SCOUTCHAT_SERVER_ADDR"`

	SearchBackend        string        `env:"SCOUTCHAT_SEARCH_BACKEND"`
	SearchLayout         string        `env:"SCOUTCHAT_SEARCH_LAYOUT"`
	SearchTimeout        time.Duration `env:"SCOUTCHAT_SEARCH_TIMEOUT"`
	BrowserMode          string        `env:"SCOUTCHAT_BROWSER_MODE"`
	BrowserRemoteURL     string        `env:"SCOUTCHAT_BROWSER_REMOTE_URL"`
	BrowserMaxConcurrent int           `env:"SCOUTCHAT_BROWSER_MAX_CONCURRENT"`
	SearXNGURL           string        `env:"SCOUTCHAT_SEARXNG_URL"`
	CacheBackend         string        `env:"SCOUTCHAT_SEARCH_CACHE_BACKEND"`
	CachePath            string        `env:"SCOUTCHAT_SEARCH_CACHE_PATH"`

	LLMBaseURL   string `env:"SCOUTCHAT_LLM_BASE_URL"`
	LLMAPIKey    string `env:"SCOUTCHAT_LLM_API_KEY"`
	LLMModel     string `env:"SCOUTCHAT_LLM_MODEL"`
	LegacyAPIKey string `env:"SILICONFLOW_API_KEY"`

	ChatSearchURL string `env:"SCOUTCHAT_CHAT_SEARCH_URL"`
	ChatWeb       bool   `env:"SCOUTCHAT_CHAT_WEB"`

	LoggerLevel  string `env:"SCOUTCHAT_LOGGER_LEVEL"`
	LoggerFormat string `env:"SCOUTCHAT_LOGGER_FORMAT"`
	LoggerOutput string `env:"SCOUTCHAT_LOGGER_OUTPUT"`

	TracerEnabled   bool   `env:"SCOUTCHAT_TRACER_ENABLED"`
	TracerExporter  string `env:"SCOUTCHAT_TRACER_EXPORTER"`
	MetricsEnabled  bool   `env:"SCOUTCHAT_METRICS_ENABLED"`
	MetricsExporter string `env:"SCOUTCHAT_METRICS_EXPORTER"`
}

// ApplyEnvOverrides maps SCOUTCHAT_* env vars onto cfg. String variables
// override only when non-empty; typed variables override whenever present.
func ApplyEnvOverrides(cfg *Config) error {
	var o envOverrides
	es, err := env.UnmarshalFromEnviron(&o)
	if err != nil {
		return fmt.Errorf("%w: env overrides: %v", domain.ErrConfigLoad, err)
	}
	present := func(name string) bool {
		_, ok := es[name]
		return ok
	}

	if o.ServerAddr != "" {
		cfg.Server.Addr = o.ServerAddr
	}

	if o.SearchBackend != "" {
		cfg.Search.Backend = o.SearchBackend
	}
	if o.SearchLayout != "" {
		cfg.Search.Layout = o.SearchLayout
	}
	if present("SCOUTCHAT_SEARCH_TIMEOUT") {
		cfg.Search.Timeout = o.SearchTimeout
	}
	if o.BrowserMode != "" {
		cfg.Search.Browser.Mode = o.BrowserMode
	}
	if o.BrowserRemoteURL != "" {
		cfg.Search.Browser.RemoteURL = o.BrowserRemoteURL
	}
	if present("SCOUTCHAT_BROWSER_MAX_CONCURRENT") {
		cfg.Search.Browser.MaxConcurrent = o.BrowserMaxConcurrent
	}
	if o.SearXNGURL != "" {
		cfg.Search.SearXNG.URL = o.SearXNGURL
	}
	if o.CacheBackend != "" {
		cfg.Search.Cache.Backend = o.CacheBackend
	}
	if o.CachePath != "" {
		cfg.Search.Cache.Path = o.CachePath
	}

	if o.LLMBaseURL != "" {
		cfg.LLM.BaseURL = o.LLMBaseURL
	}
	switch {
	case o.LLMAPIKey != "":
		cfg.LLM.APIKey = o.LLMAPIKey
	case cfg.LLM.APIKey == "" && o.LegacyAPIKey != "":
		cfg.LLM.APIKey = o.LegacyAPIKey
	}
	if o.LLMModel != "" {
		cfg.LLM.Model = o.LLMModel
	}

	if o.ChatSearchURL != "" {
		cfg.Chat.SearchURL = o.ChatSearchURL
	}
	if present("SCOUTCHAT_CHAT_WEB") {
		cfg.Chat.Web = o.ChatWeb
	}

	if o.LoggerLevel != "" {
		cfg.Logger.Level = o.LoggerLevel
	}
	if o.LoggerFormat != "" {
		cfg.Logger.Format = o.LoggerFormat
	}
	if o.LoggerOutput != "" {
		cfg.Logger.Output = o.LoggerOutput
	}

	if present("SCOUTCHAT_TRACER_ENABLED") {
		cfg.Tracer.Enabled = o.TracerEnabled
	}
	if o.TracerExporter != "" {
		cfg.Tracer.Exporter = o.TracerExporter
	}
	if present("SCOUTCHAT_METRICS_ENABLED") {
		cfg.Metrics.Enabled = o.MetricsEnabled
	}
	if o.MetricsExporter != "" {
		cfg.Metrics.Exporter = o.MetricsExporter
	}
	return nil
}
