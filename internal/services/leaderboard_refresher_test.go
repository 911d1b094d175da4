package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubWarmer struct {
	calls int
	err   error
}

func (w *stubWarmer) RefreshLeaderboard(ctx context.Context) error {
	w.calls++
	return w.err
}

type stubHealth bool

func (h stubHealth) IsOnline() bool { return bool(h) }

func TestRefresh(t *testing.T) {
	warmer := &stubWarmer{}
	lr := NewLeaderboardRefresher(warmer, stubHealth(true), nil, RefresherConfig{Interval: time.Minute})
	assert.NoError(t, lr.Refresh(context.Background()))
	assert.Equal(t, 1, warmer.calls)

	warmer.err = errors.New("redis down")
	assert.ErrorIs(t, lr.Refresh(context.Background()), warmer.err)
}

func TestRefreshSkipsWhileOffline(t *testing.T) {
	warmer := &stubWarmer{}
	lr := NewLeaderboardRefresher(warmer, stubHealth(false), nil, RefresherConfig{})
	assert.NoError(t, lr.Refresh(context.Background()))
	assert.Zero(t, warmer.calls)
}

func TestStartStop(t *testing.T) {
	lr := NewLeaderboardRefresher(&stubWarmer{}, nil, nil, RefresherConfig{Interval: time.Hour})
	lr.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	lr.Stop(ctx)

	var nilRefresher *LeaderboardRefresher
	nilRefresher.Start()
	nilRefresher.Stop(ctx)
	assert.NoError(t, nilRefresher.Refresh(ctx))
}
