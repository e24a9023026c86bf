package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type blockingService struct {
	started atomic.Bool
	stopped atomic.Bool
	order   *stopOrder
	name    string
	fail    error
}

type stopOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *stopOrder) add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func (s *blockingService) Start(ctx context.Context) error {
	s.started.Store(true)
	if s.fail != nil {
		return s.fail
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) Stop(context.Context) {
	s.stopped.Store(true)
	if s.order != nil {
		s.order.add(s.name)
	}
}

func waitStarted(t *testing.T, svcs ...*blockingService) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, s := range svcs {
			if !s.started.Load() {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRun_StopsInReverseOrderOnCancel(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), time.Second)
	order := &stopOrder{}
	ticker := &blockingService{name: "ticker", order: order}
	admin := &blockingService{name: "admin", order: order}
	lc.Add("ticker", ticker)
	lc.Add("admin", admin)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()
	waitStarted(t, ticker, admin)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "context cancellation is not a failure")
	case <-time.After(3 * time.Second):
		t.Fatal("lifecycle did not shut down")
	}
	assert.True(t, ticker.stopped.Load())
	assert.True(t, admin.stopped.Load())
	assert.Equal(t, []string{"admin", "ticker"}, order.names)
}

func TestRun_ReturnsFirstFailure(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), time.Second)
	boom := errors.New("listen: address in use")
	healthy := &blockingService{name: "ticker"}
	lc.Add("ticker", healthy)
	lc.Add("admin", &blockingService{name: "admin", fail: boom})

	done := make(chan error, 1)
	go func() { done <- lc.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "service admin")
	case <-time.After(3 * time.Second):
		t.Fatal("lifecycle did not stop after a failure")
	}
	assert.True(t, healthy.stopped.Load())
}

func TestRun_StopTimeoutBoundsStuckService(t *testing.T) {
	// The stuck service logs after the test returns, so no test logger.
	lc := NewLifecycle(zap.NewNop(), 50*time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	lc.Add("stuck", &FuncService{StartFn: func(context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop timeout was not honored")
	}
}

func TestNewLifecycle_DefaultStopTimeout(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t), 0)
	assert.Equal(t, DefaultStopTimeout, lc.stopTimeout)
}

func TestFuncService(t *testing.T) {
	var started, stopped bool
	svc := &FuncService{
		StartFn: func(context.Context) error {
			started = true
			return nil
		},
		StopFn: func(context.Context) { stopped = true },
	}

	require.NoError(t, svc.Start(context.Background()))
	svc.Stop(context.Background())
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestFuncService_NilFuncs(t *testing.T) {
	svc := &FuncService{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.Start(ctx))
	assert.NotPanics(t, func() { svc.Stop(ctx) })
}
