package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const defaultGrace = 15 * time.Second

// Stop tears one component down. It should return once ctx expires.
type Stop func(ctx context.Context) error

// CloseFunc adapts a plain Close method to a Stop.
func CloseFunc(closeFn func() error) Stop {
	return func(context.Context) error {
		return closeFn()
	}
}

// Do adapts a teardown that cannot fail to a Stop.
func Do(fn func()) Stop {
	return func(context.Context) error {
		fn()
		return nil
	}
}

type component struct {
	name string
	stop Stop
}

// Manager tears components down in reverse start order, once, within a
// grace period.
type Manager struct {
	grace  time.Duration
	logger *zap.Logger

	mu         sync.Mutex
	components []component
	stopped    bool
}

// New creates a manager. A non-positive grace uses 15s.
func New(grace time.Duration, logger *zap.Logger) *Manager {
	if grace <= 0 {
		grace = defaultGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		grace:  grace,
		logger: logger,
	}
}

// OnShutdown registers a component. Components registered after Shutdown are
// stopped immediately.
func (m *Manager) OnShutdown(name string, stop Stop) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	if !m.stopped {
		m.components = append(m.components, component{name: name, stop: stop})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.grace)
	defer cancel()
	_ = m.stopOne(ctx, component{name: name, stop: stop})
}

// SignalContext returns a context canceled on SIGINT or SIGTERM.
func (m *Manager) SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Shutdown stops every registered component. Later calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	components := m.components
	m.components = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.grace)
	defer cancel()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		if err := m.stopOne(ctx, components[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) stopOne(ctx context.Context, c component) error {
	started := time.Now()
	if err := c.stop(ctx); err != nil {
		m.logger.Error("component stop failed", zap.String("component", c.name), zap.Error(err))
		return err
	}
	m.logger.Debug("component stopped",
		zap.String("component", c.name),
		zap.Duration("took", time.Since(started)))
	return nil
}
