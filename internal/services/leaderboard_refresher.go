package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// LeaderboardWarmer rebuilds the cached first leaderboard page.
type LeaderboardWarmer interface {
	RefreshLeaderboard(ctx context.Context) error
}

// RefresherConfig controls how frequently the cache is warmed.
type RefresherConfig struct {
	Interval time.Duration
}

// LeaderboardRefresher periodically warms the leaderboard cache so the most
// requested page rarely hits the store.
type LeaderboardRefresher struct {
	warmer  LeaderboardWarmer
	monitor ConnectionHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     RefresherConfig
}

func NewLeaderboardRefresher(
	warmer LeaderboardWarmer,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg RefresherConfig,
) *LeaderboardRefresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lr := &LeaderboardRefresher{
		warmer:  warmer,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = lr.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := lr.Refresh(ctx); err != nil {
			lr.logger.Error("leaderboard refresh failed", zap.Error(err))
		}
	})

	return lr
}

// Start launches the cron scheduler.
func (lr *LeaderboardRefresher) Start() {
	if lr == nil || lr.cron == nil {
		return
	}
	lr.cron.Start()
	lr.logger.Info("leaderboard refresher started", zap.Duration("interval", lr.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (lr *LeaderboardRefresher) Stop(ctx context.Context) {
	if lr == nil || lr.cron == nil {
		return
	}
	stopCtx := lr.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	lr.logger.Info("leaderboard refresher stopped")
}

// Refresh warms the cache once, skipping while dependencies are down.
func (lr *LeaderboardRefresher) Refresh(ctx context.Context) error {
	if lr == nil || lr.warmer == nil {
		return nil
	}
	if lr.monitor != nil && !lr.monitor.IsOnline() {
		lr.logger.Debug("skipping leaderboard refresh (offline)")
		return nil
	}
	if err := lr.warmer.RefreshLeaderboard(ctx); err != nil {
		return err
	}
	lr.logger.Debug("leaderboard cache warmed")
	return nil
}
