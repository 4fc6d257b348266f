package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scoutchat/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

var doctorClient = &http.Client{Timeout: 10 * time.Second}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, model API, browser and search proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.OutOrStdout(), opts.configPath)
		},
	}
}

// runDoctor executes all health checks and reports results.
func runDoctor(w io.Writer, cfgPath string) error {
	// Some checks still run without a config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "LLM API key", Fn: checkLLMAPIKey},
		{Name: "LLM connectivity", Fn: checkLLMConnectivity},
		{Name: "Search backend", Fn: checkSearchBackend},
		{Name: "Search cache", Fn: checkSearchCache},
		{Name: "Search proxy", Fn: checkSearchProxy},
	}

	fmt.Fprintln(w, "scoutchat doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and loaded.
// A missing file is only a warning: defaults plus environment still work.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Fix %s or the SCOUTCHAT_* environment variables", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("%s not found, using defaults and environment", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

func checkLLMAPIKey(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if cfg.LLM.APIKey == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: "no API key configured",
			Fix:     "Set SCOUTCHAT_LLM_API_KEY (or llm.api_key, optionally encrypted with 'scoutchat encrypt')",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("API key configured for %s", cfg.LLM.Name),
	}
}

// checkLLMConnectivity lists models at the configured base URL.
func checkLLMConnectivity(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if cfg.LLM.APIKey == "" {
		return CheckResult{Status: StatusWarn, Message: "skipped, no API key"}
	}

	endpoint := strings.TrimRight(cfg.LLM.BaseURL, "/") + "/models"
	status, latency, err := probe(endpoint, map[string]string{"Authorization": "Bearer " + cfg.LLM.APIKey})
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot reach %s: %v", endpoint, err),
			Fix:     "Check your internet connection and llm.base_url",
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s rejected the API key (HTTP %d)", cfg.LLM.Name, status),
			Fix:     "Check the API key is valid for this endpoint",
		}
	case status >= 400:
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s answered HTTP %d (latency: %dms)", endpoint, status, latency.Milliseconds()),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s reachable (latency: %dms)", cfg.LLM.Name, latency.Milliseconds()),
	}
}

// checkSearchBackend looks for Chrome, a remote CDP endpoint or SearXNG,
// depending on search.backend.
func checkSearchBackend(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}

	s := cfg.Search
	switch {
	case s.Backend == "searxng":
		status, _, err := probe(s.SearXNG.URL, nil)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("SearXNG not reachable at %s: %v", s.SearXNG.URL, err),
				Fix:     "Start SearXNG or update search.searxng.url",
			}
		}
		if status >= 400 {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("SearXNG responded with status %d at %s", status, s.SearXNG.URL),
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("SearXNG reachable at %s", s.SearXNG.URL)}

	case s.Browser.RemoteURL != "":
		u, err := url.Parse(s.Browser.RemoteURL)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: fmt.Sprintf("invalid remote_url: %v", err)}
		}
		u.Scheme = strings.Replace(strings.Replace(u.Scheme, "wss", "https", 1), "ws", "http", 1)
		u.Path = "/json/version"
		if _, _, err := probe(u.String(), nil); err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("remote Chrome not reachable at %s: %v", u.Host, err),
				Fix:     "Start Chrome with --remote-debugging-port or update search.browser.remote_url",
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("remote Chrome reachable at %s", u.Host)}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("found %s at %s (layout %s)", name, path, s.Layout),
			}
		}
	}
	return CheckResult{
		Status:  StatusFail,
		Message: "Chrome/Chromium not found",
		Fix:     "Install Chromium, set search.browser.remote_url, or use search.backend: searxng",
	}
}

// checkSearchCache verifies the SQLite cache directory is writable.
func checkSearchCache(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}

	c := cfg.Search.Cache
	if c.Backend != "sqlite" {
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s cache, nothing on disk", c.Backend)}
	}

	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot create %s: %v", dir, err),
			Fix:     "Fix permissions or change search.cache.path",
		}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
			Fix:     "Fix permissions or change search.cache.path",
		}
	}
	f.Close()
	os.Remove(f.Name())

	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("sqlite cache at %s", c.Path)}
}

// checkSearchProxy calls the proxy's health endpoint unless chat searches
// locally.
func checkSearchProxy(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	if cfg.Chat.LocalSearch {
		return CheckResult{Status: StatusPass, Message: "chat.local_search is set, proxy not required"}
	}

	health, err := healthURL(cfg.Chat.SearchURL)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("invalid chat.search_url: %v", err)}
	}
	status, _, err := probe(health, nil)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("search proxy not reachable at %s", health),
			Fix:     "Run 'scoutchat serve', or use 'scoutchat chat --local-search'",
		}
	}
	if status != http.StatusOK {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("search proxy health answered HTTP %d", status),
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("search proxy healthy at %s", health)}
}

// healthURL maps a .../api/search endpoint onto the sibling .../api/health.
func healthURL(searchURL string) (string, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", searchURL)
	}
	if strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimSuffix(u.Path, "/search") + "/health"
	} else {
		u.Path = "/api/health"
	}
	u.RawQuery = ""
	return u.String(), nil
}

// probe issues a GET and returns the status code and latency.
func probe(endpoint string, headers map[string]string) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), doctorClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := doctorClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	resp.Body.Close()
	return resp.StatusCode, latency, nil
}
