// Package server runs the daemon's long-lived services and shuts them down
// in reverse order on a signal, a cancelled context or the first failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout bounds how long Run waits for services to stop.
const DefaultStopTimeout = 10 * time.Second

// Service is a long-running component of the daemon.
type Service interface {
	// Start runs the service until ctx is cancelled, Stop is called or it fails.
	Start(ctx context.Context) error
	// Stop asks the service to finish. ctx bounds the wait.
	Stop(ctx context.Context)
}

// FuncService adapts a start/stop function pair into a Service. A nil StopFn
// is a no-op; a nil StartFn blocks until ctx is done.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func(ctx context.Context)
}

// Start calls StartFn.
func (f *FuncService) Start(ctx context.Context) error {
	if f.StartFn == nil {
		<-ctx.Done()
		return nil
	}
	return f.StartFn(ctx)
}

// Stop calls StopFn.
func (f *FuncService) Stop(ctx context.Context) {
	if f.StopFn != nil {
		f.StopFn(ctx)
	}
}

// Lifecycle starts services in registration order and stops them in reverse.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration
	signals     []os.Signal

	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle returns a lifecycle that shuts down on SIGINT or SIGTERM.
// A stopTimeout <= 0 selects DefaultStopTimeout.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, stopTimeout time.Duration) *Lifecycle {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Lifecycle{
		logger:      logger.Named("lifecycle"),
		stopTimeout: stopTimeout,
		signals:     []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until a termination signal arrives,
// ctx is cancelled or a service fails. It then stops the services in reverse
// order and waits for them to return, at most the stop timeout.
//
// Postcondition: returns the first service failure, or nil on a requested
// shutdown. Start errors that only report the cancellation are not failures.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	services := make([]namedService, len(l.services))
	copy(services, l.services)
	l.mu.Unlock()

	began := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(services))
	var wg sync.WaitGroup
	for _, ns := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("service starting", zap.String("service", ns.name))
			err := ns.service.Start(runCtx)
			switch {
			case err == nil, errors.Is(err, context.Canceled) && runCtx.Err() != nil:
				l.logger.Info("service exited", zap.String("service", ns.name))
			default:
				l.logger.Error("service failed", zap.String("service", ns.name), zap.Error(err))
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("services started", zap.Int("count", len(services)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, l.signals...)
	defer signal.Stop(sigCh)

	var failure error
	select {
	case sig := <-sigCh:
		l.logger.Info("signal received", zap.Stringer("signal", sig))
	case failure = <-errCh:
	case <-ctx.Done():
		l.logger.Info("context done")
	}

	cancel()
	l.stop(services)

	exited := make(chan struct{})
	go func() {
		wg.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(l.stopTimeout):
		l.logger.Warn("services still running after stop timeout", zap.Duration("timeout", l.stopTimeout))
	}

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return failure
}

func (l *Lifecycle) stop(services []namedService) {
	ctx, cancel := context.WithTimeout(context.Background(), l.stopTimeout)
	defer cancel()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		began := time.Now()
		ns.service.Stop(ctx)
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(began)),
		)
	}
}
