package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/fastygo/questlog/internal/cli"
	"github.com/fastygo/questlog/internal/config"
	"github.com/fastygo/questlog/internal/infrastructure/localstore"
	"github.com/fastygo/questlog/internal/remote"
	"github.com/fastygo/questlog/internal/services/lifecycle"
	"github.com/fastygo/questlog/pkg/logger"
	"github.com/fastygo/questlog/repository/local"
	"github.com/fastygo/questlog/usecase"
	"github.com/fastygo/questlog/usecase/remotesync"
	"github.com/fastygo/questlog/usecase/tracker"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Output:   cfg.Logger.Output,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.RequestTimeout, zapLogger)
	ctx, cancel := manager.SignalContext(context.Background())
	defer cancel()

	store, err := localstore.Open(cfg.DataPath, "device")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening device cache: %v\n", err)
		os.Exit(1)
	}
	manager.OnShutdown("device_cache", lifecycle.CloseFunc(store.Close))

	cache := local.NewCacheRepository(store)
	engine := tracker.New(cache, zapLogger.Named("tracker"), tracker.Config{})
	if err := engine.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tasks: %v\n", err)
		_ = manager.Shutdown(context.Background())
		os.Exit(1)
	}

	client := remote.New(remote.Config{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.RequestTimeout,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerTimeout:  cfg.BreakerTimeout,
	}, zapLogger.Named("remote"))

	coordinator := remotesync.New(client, engine, local.NewSessionGateway(cache), zapLogger.Named("sync"), remotesync.Config{
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		PushTimeout:    cfg.RequestTimeout,
		Debounce:       cfg.PushDebounce,
	})
	coordinator.SetErrorHandler(func(err error) {
		zapLogger.Warn("background sync failed", zap.Error(err))
	})
	if err := coordinator.Resume(ctx); err != nil {
		zapLogger.Warn("failed to restore session", zap.Error(err))
	}
	engine.SetObserver(coordinator)
	manager.OnShutdown("sync", lifecycle.Do(coordinator.Wait))

	dispatcher := usecase.NewDispatcher()
	engine.RegisterIntents(dispatcher)

	app := &cli.App{
		Dispatcher: dispatcher,
		Sync:       coordinator,
		Remote:     client,
		Cache:      cache,
		Logger:     zapLogger,
	}

	runErr := cli.Execute(ctx, app, os.Args[1:])
	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
