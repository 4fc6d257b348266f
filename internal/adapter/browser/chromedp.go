package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromeConfig holds settings shared by the chromedp launchers.
type ChromeConfig struct {
	// RemoteURL is the CDP WebSocket endpoint of a running Chrome.
	// If empty, a local Chrome instance is launched.
	RemoteURL string
	// Headless controls whether a locally launched Chrome runs headless.
	Headless bool
	// UserAgent overrides the browser's user agent when set.
	UserAgent string
	// StartTimeout bounds browser and tab start-up.
	StartTimeout time.Duration
}

func (c ChromeConfig) startTimeout() time.Duration {
	if c.StartTimeout <= 0 {
		return 30 * time.Second
	}
	return c.StartTimeout
}

// newAllocator returns an allocator context for cfg.
func newAllocator(cfg ChromeConfig) (context.Context, context.CancelFunc) {
	if cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	}
	// Copy default options to avoid mutating the package-level slice.
	opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(opts, chromedp.DefaultExecAllocatorOptions[:])
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 720),
	)
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// start runs an empty action on ctx so chromedp allocates the browser and
// target. ctx must not be wrapped in a timeout: chromedp binds the CDP
// session to the context of the first Run, so the deadline is enforced here.
func start(ctx context.Context, timeout time.Duration, userAgent string) error {
	var actions []chromedp.Action
	if userAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(userAgent))
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %v", timeout)
	}
}

// SharedLauncher keeps one browser process and opens a tab per lease.
// The browser starts on first use and is restarted if it goes away.
type SharedLauncher struct {
	cfg    ChromeConfig
	logger *slog.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSharedLauncher creates a launcher backed by a single browser.
func NewSharedLauncher(cfg ChromeConfig, logger *slog.Logger) *SharedLauncher {
	return &SharedLauncher{cfg: cfg, logger: logger}
}

func (l *SharedLauncher) Name() string { return "chromedp-shared" }

// browser returns the live browser context, starting one if needed.
func (l *SharedLauncher) browser() (context.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browserCtx != nil && l.browserCtx.Err() == nil {
		return l.browserCtx, nil
	}
	l.shutdownLocked()

	allocCtx, allocCancel := newAllocator(l.cfg)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := start(browserCtx, l.cfg.startTimeout(), ""); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	l.allocCancel, l.browserCtx, l.browserCancel = allocCancel, browserCtx, browserCancel
	l.logger.Info("chromedp browser started", "remote", l.cfg.RemoteURL != "", "headless", l.cfg.Headless)
	return browserCtx, nil
}

// Open creates a new tab in the shared browser.
func (l *SharedLauncher) Open(ctx context.Context) (Tab, error) {
	browserCtx, err := l.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	if err := start(tabCtx, l.cfg.startTimeout(), l.cfg.UserAgent); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &cdpTab{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts the shared browser down.
func (l *SharedLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browserCtx != nil {
		l.shutdownLocked()
		l.logger.Info("chromedp browser closed")
	}
	return nil
}

func (l *SharedLauncher) shutdownLocked() {
	if l.browserCancel != nil {
		l.browserCancel()
	}
	if l.allocCancel != nil {
		l.allocCancel()
	}
	l.allocCancel, l.browserCtx, l.browserCancel = nil, nil, nil
}

// IsolatedLauncher starts a fresh browser for every lease and tears it
// down with the tab. Slower, but no state leaks between searches.
type IsolatedLauncher struct {
	cfg    ChromeConfig
	logger *slog.Logger
}

// NewIsolatedLauncher creates a launcher that starts a browser per tab.
func NewIsolatedLauncher(cfg ChromeConfig, logger *slog.Logger) *IsolatedLauncher {
	return &IsolatedLauncher{cfg: cfg, logger: logger}
}

func (l *IsolatedLauncher) Name() string { return "chromedp-isolated" }

// Open starts a browser and returns its first tab.
func (l *IsolatedLauncher) Open(ctx context.Context) (Tab, error) {
	allocCtx, allocCancel := newAllocator(l.cfg)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := start(browserCtx, l.cfg.startTimeout(), l.cfg.UserAgent); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	l.logger.Debug("chromedp isolated browser started")
	return &cdpTab{ctx: browserCtx, cancel: func() {
		browserCancel()
		allocCancel()
	}}, nil
}

func (l *IsolatedLauncher) Close() error { return nil }

// cdpTab is a chromedp target context.
type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by the caller's ctx. The derived
// context is cancelled when ctx is, without touching the tab's own context.
func (t *cdpTab) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		rctx, dcancel = context.WithDeadline(rctx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (t *cdpTab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

func (t *cdpTab) WaitReady(ctx context.Context, selector string) error {
	return t.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (t *cdpTab) Evaluate(ctx context.Context, expr string, out any) error {
	return t.run(ctx, chromedp.Evaluate(expr, out))
}

func (t *cdpTab) Close() error {
	t.cancel()
	return nil
}
