package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/questlog/api/handler"
	"github.com/fastygo/questlog/internal/config"
	"github.com/fastygo/questlog/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/questlog/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/questlog/internal/infrastructure/redis"
	sqliteInfra "github.com/fastygo/questlog/internal/infrastructure/sqlite"
	"github.com/fastygo/questlog/internal/middleware"
	"github.com/fastygo/questlog/internal/router"
	"github.com/fastygo/questlog/internal/services"
	"github.com/fastygo/questlog/internal/services/lifecycle"
	"github.com/fastygo/questlog/pkg/httpcontext"
	"github.com/fastygo/questlog/pkg/logger"
	"github.com/fastygo/questlog/repository"
	"github.com/fastygo/questlog/repository/postgres"
	redisRepo "github.com/fastygo/questlog/repository/redis"
	"github.com/fastygo/questlog/repository/sqlite"
	usersUC "github.com/fastygo/questlog/usecase/users"
)

func main() {
	cfg, err := config.Load()
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

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.SignalContext(context.Background())
	defer cancel()

	userRepo, storeCheck := openStore(appCtx, cfg, manager, zapLogger)

	checks := []monitor.Check{storeCheck}
	var leaderboardCache repository.LeaderboardCache
	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	if redisClient != nil {
		manager.OnShutdown("redis", lifecycle.CloseFunc(redisClient.Close))
		leaderboardCache = redisRepo.NewLeaderboardCache(redisClient, cfg.Leaderboard.CacheTTL)
		checks = append(checks, monitor.Check{
			Name:     "redis",
			Optional: true,
			Timeout:  2 * time.Second,
			Ping: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	mon := monitor.New(10*time.Second, zapLogger, checks...)
	mon.Start()
	manager.OnShutdown("monitor", lifecycle.Do(mon.Stop))

	usersUseCase := usersUC.New(userRepo, leaderboardCache, zapLogger)

	if leaderboardCache != nil {
		refresher := services.NewLeaderboardRefresher(usersUseCase, mon, zapLogger, services.RefresherConfig{
			Interval: cfg.Leaderboard.RefreshInterval,
		})
		refresher.Start()
		manager.OnShutdown("leaderboard_refresher", func(ctx context.Context) error {
			refresher.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		User:        apiHandler.NewUserHandler(usersUseCase, ctxAdapter, zapLogger),
		Leaderboard: apiHandler.NewLeaderboardHandler(usersUseCase, ctxAdapter, zapLogger),
		Health:      apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	if cfg.JWT.Secret == "" {
		zapLogger.Warn("JWT_SECRET is empty, user routes are unauthenticated")
	}
	authMiddleware := middleware.BearerAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("leaderboard_cache", leaderboardCache != nil))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.OnShutdown("http_server", server.ShutdownWithContext)

	<-appCtx.Done()
	zapLogger.Info("shutting down")

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// openStore connects the configured user store and returns it with its
// health check.
func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) (repository.UserRepository, monitor.Check) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		db, err := sqliteInfra.Open(ctx, cfg.Store.SQLitePath, zapLogger)
		if err != nil {
			zapLogger.Fatal("sqlite open failed", zap.Error(err))
		}
		manager.OnShutdown("sqlite", lifecycle.CloseFunc(db.Close))
		return sqlite.NewUserRepository(db), monitor.Check{Name: "sqlite", Ping: db.PingContext}

	default:
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.OnShutdown("postgres", lifecycle.Do(pool.Close))
		return postgres.NewUserRepository(pool), monitor.Check{Name: "postgresql", Ping: pool.Ping}
	}
}
