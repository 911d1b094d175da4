package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefresh(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name    string
		checks  []Check
		healthy bool
	}{
		{name: "no checks", healthy: true},
		{
			name:    "required up",
			checks:  []Check{{Name: "db", Ping: func(context.Context) error { return nil }}},
			healthy: true,
		},
		{
			name:   "required down",
			checks: []Check{{Name: "db", Ping: func(context.Context) error { return down }}},
		},
		{
			name: "optional down",
			checks: []Check{
				{Name: "db", Ping: func(context.Context) error { return nil }},
				{Name: "redis", Optional: true, Ping: func(context.Context) error { return down }},
			},
			healthy: true,
		},
		{name: "missing check func", checks: []Check{{Name: "db"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(time.Minute, nil, tt.checks...)
			assert.False(t, m.IsOnline())

			status := m.Refresh()
			assert.Equal(t, tt.healthy, status.Healthy)
			assert.Equal(t, tt.healthy, m.IsOnline())
			assert.Len(t, status.Services, len(tt.checks))
			assert.False(t, status.LastCheck.IsZero())
		})
	}
}

func TestCheckTimeout(t *testing.T) {
	m := New(time.Minute, nil, Check{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Ping: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	status := m.Refresh()
	assert.False(t, status.Services["slow"])
}

func TestGetStatusReturnsCopy(t *testing.T) {
	m := New(time.Minute, nil, Check{Name: "db", Ping: func(context.Context) error { return nil }})
	m.Refresh()
	status := m.GetStatus()
	status.Services["db"] = false
	assert.True(t, m.GetStatus().Services["db"])
}

func TestStartAndStop(t *testing.T) {
	m := New(5*time.Millisecond, nil, Check{Name: "db", Ping: func(context.Context) error { return nil }})
	m.Start()
	assert.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}
