// Package browser leases headless browser tabs to searchers through a
// bounded pool.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

// Tab is one browser page. A Tab is used by a single goroutine at a time.
type Tab interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until selector matches an element in the DOM.
	WaitReady(ctx context.Context, selector string) error
	// Evaluate runs a JS expression and decodes its JSON result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	// Close releases the page and anything launched for it.
	Close() error
}

// Launcher opens tabs on some browser.
type Launcher interface {
	Open(ctx context.Context) (Tab, error)
	Close() error
	Name() string
}

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("browser pool closed")

// PoolConfig bounds the pool.
type PoolConfig struct {
	MaxConcurrent  int
	AcquireTimeout time.Duration
}

// Pool bounds how many tabs are open at once. Each Do call leases one slot
// and one tab, and returns both on every exit path.
type Pool struct {
	launcher       Launcher
	sem            *semaphore.Weighted
	size           int
	acquireTimeout time.Duration
	logger         *slog.Logger

	inUse  atomic.Int64
	closed atomic.Bool

	inUseGauge metric.Int64UpDownCounter
	waitHist   metric.Float64Histogram
}

// NewPool wraps launcher in a pool of cfg.MaxConcurrent slots.
func NewPool(launcher Launcher, cfg PoolConfig, logger *slog.Logger) (*Pool, error) {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}

	meter := tracer.Meter()
	inUseGauge, err := meter.Int64UpDownCounter("scoutchat.browser.pool.in_use",
		metric.WithDescription("Browser tabs currently leased"))
	if err != nil {
		return nil, fmt.Errorf("create in_use gauge: %w", err)
	}
	waitHist, err := meter.Float64Histogram("scoutchat.browser.pool.wait",
		metric.WithDescription("Time spent waiting for a free browser slot"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create wait histogram: %w", err)
	}

	return &Pool{
		launcher:       launcher,
		sem:            semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		size:           cfg.MaxConcurrent,
		acquireTimeout: cfg.AcquireTimeout,
		logger:         logger,
		inUseGauge:     inUseGauge,
		waitHist:       waitHist,
	}, nil
}

// Do leases a tab, runs fn with it, then closes the tab and frees the slot.
// Release happens even if fn returns an error or panics.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context, tab Tab) error) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	start := time.Now()
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	err := p.sem.Acquire(acquireCtx, 1)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NewSubSystemError("browser", "browser.acquire", domain.ErrLimitReached,
			fmt.Sprintf("all %d browser slots busy for %v", p.size, p.acquireTimeout))
	}
	p.waitHist.Record(ctx, time.Since(start).Seconds())

	p.inUse.Add(1)
	p.inUseGauge.Add(ctx, 1)
	defer func() {
		p.inUse.Add(-1)
		p.inUseGauge.Add(context.WithoutCancel(ctx), -1)
		p.sem.Release(1)
	}()

	tab, err := p.launcher.Open(ctx)
	if err != nil {
		return domain.WrapOp("browser.open", err)
	}
	defer func() {
		if cerr := tab.Close(); cerr != nil {
			p.logger.Warn("browser tab close failed", "launcher", p.launcher.Name(), "error", cerr)
		}
	}()

	return fn(ctx, tab)
}

// InUse reports the number of currently leased tabs.
func (p *Pool) InUse() int { return int(p.inUse.Load()) }

// Size reports the pool's concurrency bound.
func (p *Pool) Size() int { return p.size }

// Close stops new leases and shuts the launcher down.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.launcher.Close()
}
