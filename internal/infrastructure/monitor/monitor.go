package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Check tests one dependency. Optional dependencies are reported but do not
// make the service unhealthy.
type Check struct {
	Name     string
	Optional bool
	Timeout  time.Duration
	Ping     func(ctx context.Context) error
}

type Monitor struct {
	checks []Check

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger, checks ...Check) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	services := make(map[string]bool, len(m.status.Services))
	for name, ok := range m.status.Services {
		services[name] = ok
	}
	status := m.status
	status.Services = services
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and publishes the result.
func (m *Monitor) Refresh() Status {
	status := Status{
		Services:  make(map[string]bool, len(m.checks)),
		Healthy:   true,
		LastCheck: time.Now(),
	}
	for _, check := range m.checks {
		ok := m.run(check)
		status.Services[check.Name] = ok
		if !ok && !check.Optional {
			status.Healthy = false
		}
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

func (m *Monitor) run(check Check) bool {
	if check.Ping == nil {
		return false
	}
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := check.Ping(ctx); err != nil {
		m.logger.Warn("dependency check failed", zap.String("service", check.Name), zap.Error(err))
		return false
	}
	return true
}
