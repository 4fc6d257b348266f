package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutchat/internal/domain"
)

type fakeTab struct {
	closed *atomic.Int64
}

func (t *fakeTab) Navigate(context.Context, string) error      { return nil }
func (t *fakeTab) WaitReady(context.Context, string) error     { return nil }
func (t *fakeTab) Evaluate(context.Context, string, any) error { return nil }
func (t *fakeTab) Close() error                                { t.closed.Add(1); return nil }

type fakeLauncher struct {
	opened  atomic.Int64
	closed  atomic.Int64
	openErr error
	shut    atomic.Bool
}

func (l *fakeLauncher) Open(context.Context) (Tab, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	l.opened.Add(1)
	return &fakeTab{closed: &l.closed}, nil
}

func (l *fakeLauncher) Close() error { l.shut.Store(true); return nil }
func (l *fakeLauncher) Name() string { return "fake" }

func newTestPool(t *testing.T, l Launcher, size int, acquire time.Duration) *Pool {
	t.Helper()
	p, err := NewPool(l, PoolConfig{MaxConcurrent: size, AcquireTimeout: acquire}, slog.Default())
	require.NoError(t, err)
	return p
}

func TestPoolDoClosesTab(t *testing.T) {
	l := &fakeLauncher{}
	p := newTestPool(t, l, 1, time.Second)

	err := p.Do(context.Background(), func(ctx context.Context, tab Tab) error {
		assert.Equal(t, 1, p.InUse())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.opened.Load())
	assert.Equal(t, int64(1), l.closed.Load())
	assert.Equal(t, 0, p.InUse())
}

func TestPoolReleasesOnError(t *testing.T) {
	l := &fakeLauncher{}
	p := newTestPool(t, l, 1, 50*time.Millisecond)
	boom := errors.New("boom")

	err := p.Do(context.Background(), func(context.Context, Tab) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), l.closed.Load())

	// The single slot must be free again.
	require.NoError(t, p.Do(context.Background(), func(context.Context, Tab) error { return nil }))
}

func TestPoolReleasesOnPanic(t *testing.T) {
	l := &fakeLauncher{}
	p := newTestPool(t, l, 1, 50*time.Millisecond)

	func() {
		defer func() {
			assert.NotNil(t, recover())
		}()
		p.Do(context.Background(), func(context.Context, Tab) error { panic("scrape exploded") })
	}()

	assert.Equal(t, int64(1), l.closed.Load())
	assert.Equal(t, 0, p.InUse())
	require.NoError(t, p.Do(context.Background(), func(context.Context, Tab) error { return nil }))
}

func TestPoolReleasesOnOpenError(t *testing.T) {
	l := &fakeLauncher{openErr: errors.New("chrome not found")}
	p := newTestPool(t, l, 1, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		err := p.Do(context.Background(), func(context.Context, Tab) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chrome not found")
		assert.False(t, errors.Is(err, domain.ErrLimitReached), "slot leaked on attempt %d", i)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 2
	l := &fakeLauncher{}
	p := newTestPool(t, l, size, 5*time.Second)

	var (
		current, peak atomic.Int64
		wg            sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func(context.Context, Tab) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(size))
	assert.Equal(t, int64(10), l.opened.Load())
	assert.Equal(t, int64(10), l.closed.Load())
}

func TestPoolAcquireTimeout(t *testing.T) {
	l := &fakeLauncher{}
	p := newTestPool(t, l, 1, 20*time.Millisecond)

	hold := make(chan struct{})
	held := make(chan struct{})
	go p.Do(context.Background(), func(context.Context, Tab) error {
		close(held)
		<-hold
		return nil
	})
	<-held
	defer close(hold)

	err := p.Do(context.Background(), func(context.Context, Tab) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLimitReached)
	assert.Equal(t, domain.CodeBrowserPoolFull, domain.ErrorCodeOf(err))
}

func TestPoolCallerCancel(t *testing.T) {
	l := &fakeLauncher{}
	p := newTestPool(t, l, 1, time.Second)

	hold := make(chan struct{})
	held := make(chan struct{})
	go p.Do(context.Background(), func(context.Context, Tab) error {
		close(held)
		<-hold
		return nil
	})
	<-held
	defer close(hold)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, func(context.Context, Tab) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolClose(t *testing.T) {
	l := &fakeLauncher{}
	p := newTestPool(t, l, 1, time.Second)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, l.shut.Load())

	err := p.Do(context.Background(), func(context.Context, Tab) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestNewPoolDefaults(t *testing.T) {
	p := newTestPool(t, &fakeLauncher{}, 0, 0)
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, 30*time.Second, p.acquireTimeout)
}
