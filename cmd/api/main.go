// Package main is the entry point for the gamification engine API server.
//
// The API serves the REST interface: recording actions, evaluating
// achievements, and the dashboard/leaderboard read side. Achievement
// evaluation runs asynchronously off the progress.changed event, or inline
// on the request path when ENGINE_ASYNC_EVALUATION is off; the worker binary
// sweeps up anything the async path missed.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bizhub-io/gamification-engine/config"
	"github.com/bizhub-io/gamification-engine/internal/application/command"
	"github.com/bizhub-io/gamification-engine/internal/application/eventhandler"
	"github.com/bizhub-io/gamification-engine/internal/application/query"
	"github.com/bizhub-io/gamification-engine/internal/domain/leaderboard"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/internal/domain/stats"
	"github.com/bizhub-io/gamification-engine/internal/infrastructure/messaging"
	"github.com/bizhub-io/gamification-engine/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/bizhub-io/gamification-engine/internal/infrastructure/persistence/redis"
	httpiface "github.com/bizhub-io/gamification-engine/internal/interface/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("starting gamification api",
		"env", string(cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Persistence ─────────────────────────────────────────────────────────
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.Database.Migrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	progressRepo := postgres.NewProgressRepository(conn)
	catalogRepo := postgres.NewCatalogRepository(conn)
	stateRepo := postgres.NewStateRepository(conn)
	historyRepo := postgres.NewEventHistoryRepository(conn)

	var lbCache leaderboard.Cache
	if cfg.Redis.Enabled {
		cache, err := redisinfra.NewCache(ctx, redisCacheConfig(cfg))
		if err != nil {
			// Cache is an optimization; standings fall back to PostgreSQL.
			logger.Warn("redis unavailable, leaderboard cache disabled", "error", err)
		} else {
			defer cache.Close()
			lbCache = redisinfra.NewLeaderboardCache(cache)
		}
	}

	// ─── Application ─────────────────────────────────────────────────────────
	clock := shared.SystemClock{}
	aggregator := stats.NewAggregator(progressRepo, historyRepo)

	bus := messaging.NewInMemoryEventBus(messaging.BusConfig{
		AsyncMode:      cfg.Engine.AsyncEvaluation,
		WorkerPoolSize: cfg.Engine.EventWorkers,
		Logger:         logger,
	})
	defer func() { _ = bus.Close() }()

	recordAction := command.NewRecordActionHandler(progressRepo, historyRepo, bus, clock, logger)
	evaluate := command.NewEvaluateHandler(catalogRepo, stateRepo, aggregator, bus, clock, logger)
	initializeCatalog := command.NewInitializeCatalogHandler(catalogRepo, clock, logger)

	getProgress := query.NewGetProgressHandler(progressRepo, logger)
	getAchievements := query.NewGetAchievementsHandler(catalogRepo, stateRepo, logger)
	getLeaderboard := query.NewGetLeaderboardHandler(stateRepo, lbCache, clock, cfg.Engine.LeaderboardTTL, logger)
	nextMilestones := query.NewNextMilestonesHandler(catalogRepo, stateRepo, aggregator, logger)
	getDashboard := query.NewGetDashboardHandler(getProgress, getAchievements, getLeaderboard, nextMilestones, logger)

	// Async mode evaluates off the progress.changed event; synchronous mode
	// evaluates inline on the request path instead, so the updateProgress
	// response can carry the newly earned achievements. Registering the bus
	// subscriber alongside inline evaluation would let it consume completions
	// first, leaving the response empty.
	if cfg.Engine.AsyncEvaluation {
		onProgressChanged := eventhandler.NewProgressChangedHandler(evaluate, bus, clock, logger)
		if err := onProgressChanged.Register(bus); err != nil {
			return err
		}
	}

	if cfg.Engine.SeedCatalog {
		seeded, err := initializeCatalog.Handle(ctx)
		if err != nil {
			return err
		}
		logger.Info("catalog seeded", "definitions", seeded)
	}

	// ─── HTTP ────────────────────────────────────────────────────────────────
	api := httpiface.NewAPI(
		recordAction, evaluate, initializeCatalog,
		getDashboard, getAchievements, getLeaderboard, getProgress, nextMilestones,
		!cfg.Engine.AsyncEvaluation,
		logger,
	)
	server := httpiface.NewServer(cfg.HTTP.Addr, api.Router(), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("api stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Database.Host
	pgCfg.Port = cfg.Database.Port
	pgCfg.Database = cfg.Database.Name
	pgCfg.User = cfg.Database.User
	pgCfg.Password = cfg.Database.Password
	pgCfg.SSLMode = cfg.Database.SSLMode
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, errors.Join(errors.New("postgres connection failed"), err)
	}
	return conn, nil
}

func redisCacheConfig(cfg *config.Config) redisinfra.Config {
	rCfg := redisinfra.DefaultConfig()
	rCfg.Host = cfg.Redis.Host
	rCfg.Port = cfg.Redis.Port
	rCfg.Password = cfg.Redis.Password
	rCfg.DB = cfg.Redis.DB
	return rCfg
}
