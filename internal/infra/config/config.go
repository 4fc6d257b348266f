package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	LLM     LLMConfig     `yaml:"llm"`
	Chat    ChatConfig    `yaml:"chat"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds the search proxy HTTP listener settings.
type ServerConfig struct {
	Addr         string          `yaml:"addr"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-IP token bucket settings.
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
	Burst             int      `yaml:"burst"`
	TrustedProxies    []string `yaml:"trusted_proxies,omitempty"` // peers whose X-Forwarded-For is honoured
}

// SearchConfig selects and tunes the searcher behind the proxy.
type SearchConfig struct {
	Backend    string        `yaml:"backend"` // "browser" or "searxng"
	Layout     string        `yaml:"layout"`  // default extraction layout, e.g. "google/2024"
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"` // 0 = every result on the page
	Browser    BrowserConfig `yaml:"browser"`
	SearXNG    SearXNGConfig `yaml:"searxng"`
	Cache      CacheConfig   `yaml:"cache"`
}

// BrowserConfig holds headless browser pool settings.
type BrowserConfig struct {
	Mode           string        `yaml:"mode"`       // "shared" (tab per search) or "isolated" (process per search)
	RemoteURL      string        `yaml:"remote_url"` // CDP websocket URL; empty launches a local Chrome
	Headless       bool          `yaml:"headless"`
	UserAgent      string        `yaml:"user_agent,omitempty"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	StartTimeout   time.Duration `yaml:"start_timeout"`
}

// SearXNGConfig holds settings for the SearXNG searcher.
type SearXNGConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig holds search result cache settings.
type CacheConfig struct {
	Backend    string        `yaml:"backend"` // "none", "memory" or "sqlite"
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Path       string        `yaml:"path"` // sqlite database file
}

// LLMConfig holds the chat-completion provider settings.
type LLMConfig struct {
	Name           string               `yaml:"name"`
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	Model          string               `yaml:"model"`
	Temperature    float64              `yaml:"temperature"`
	MaxTokens      int                  `yaml:"max_tokens"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	RespTimeout    time.Duration        `yaml:"resp_timeout"`
	Pool           PoolConfig           `yaml:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the LLM provider.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for the LLM provider.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ChatConfig holds chat client settings.
type ChatConfig struct {
	SearchURL     string        `yaml:"search_url"`   // search proxy endpoint
	LocalSearch   bool          `yaml:"local_search"` // drive the browser in-process instead
	Web           bool          `yaml:"web"`          // web mode on at startup
	SearchTimeout time.Duration `yaml:"search_timeout"`
	Prompt        PromptConfig  `yaml:"prompt"`
}

// PromptConfig holds the text/template sources used to build the final user
// prompt. Templates see {{.Query}} and {{.Results}}.
type PromptConfig struct {
	Augmented string `yaml:"augmented"`
	Fallback  string `yaml:"fallback"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"` // stderr, stdout, discard, or a file path
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// MetricsConfig holds metric export settings.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Exporter string        `yaml:"exporter"`
	Interval time.Duration `yaml:"interval"`
}

// Default prompt templates.
const (
	DefaultAugmentedPrompt = "用户问题: {{.Query}}\n\n搜索结果: {{.Results}}\n\n请根据以上搜索结果回答用户问题。"
	DefaultFallbackPrompt  = "{{.Query}} (注：搜索功能暂时发生错误，将直接回答)"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "scoutchat.yaml"

// defaultDataDir returns the persistent data directory under $HOME/.scoutchat.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".scoutchat")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             10,
			},
		},
		Search: SearchConfig{
			Backend: "browser",
			Layout:  "google/2024",
			Timeout: 30 * time.Second,
			Browser: BrowserConfig{
				Mode:           "shared",
				Headless:       true,
				MaxConcurrent:  2,
				AcquireTimeout: 30 * time.Second,
				StartTimeout:   30 * time.Second,
			},
			SearXNG: SearXNGConfig{
				Timeout: 15 * time.Second,
			},
			Cache: CacheConfig{
				Backend:    "memory",
				TTL:        15 * time.Minute,
				MaxEntries: 100,
				Path:       filepath.Join(defaultDataDir(), "search-cache.db"),
			},
		},
		LLM: LLMConfig{
			Name:        "siliconflow",
			BaseURL:     "https://api.siliconflow.cn/v1",
			Model:       "Qwen/Qwen2.5-7B-Instruct",
			Temperature: 0.7,
			MaxTokens:   2048,
			ConnTimeout: 10 * time.Second,
			RespTimeout: 120 * time.Second,
			Pool: PoolConfig{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Chat: ChatConfig{
			SearchURL:     "http://127.0.0.1:8080/api/search",
			SearchTimeout: 60 * time.Second,
			Prompt: PromptConfig{
				Augmented: DefaultAugmentedPrompt,
				Fallback:  DefaultFallbackPrompt,
			},
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
		Metrics: MetricsConfig{
			Exporter: "noop",
			Interval: 60 * time.Second,
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if passphrase := os.Getenv(ConfigKeyEnv); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
