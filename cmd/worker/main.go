// Package main is the entry point for the gamification engine worker.
//
// The worker runs the periodic jobs that keep derived state honest:
// rebuilding cached workspace standings and re-running achievement
// evaluation for recently active users. Evaluation is idempotent, so the
// sweep closes any gap left by a failed asynchronous evaluation without
// risking double awards.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bizhub-io/gamification-engine/config"
	"github.com/bizhub-io/gamification-engine/internal/application/command"
	"github.com/bizhub-io/gamification-engine/internal/application/query"
	"github.com/bizhub-io/gamification-engine/internal/domain/leaderboard"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/internal/domain/stats"
	"github.com/bizhub-io/gamification-engine/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/bizhub-io/gamification-engine/internal/infrastructure/persistence/redis"
	"github.com/bizhub-io/gamification-engine/internal/infrastructure/scheduler"
	"github.com/bizhub-io/gamification-engine/internal/infrastructure/scheduler/jobs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited with error", "error", err)
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
	logger.Info("starting gamification worker",
		"env", string(cfg.App.Environment),
		"rebuild_interval", cfg.Worker.RebuildInterval.String(),
		"sweep_interval", cfg.Worker.SweepInterval.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Persistence ─────────────────────────────────────────────────────────
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	progressRepo := postgres.NewProgressRepository(conn)
	catalogRepo := postgres.NewCatalogRepository(conn)
	stateRepo := postgres.NewStateRepository(conn)
	historyRepo := postgres.NewEventHistoryRepository(conn)

	var lbCache leaderboard.Cache
	if cfg.Redis.Enabled {
		cache, err := redisinfra.NewCache(ctx, redisCacheConfig(cfg))
		if err != nil {
			logger.Warn("redis unavailable, rebuild job will skip caching", "error", err)
		} else {
			defer cache.Close()
			lbCache = redisinfra.NewLeaderboardCache(cache)
		}
	}

	// ─── Jobs ────────────────────────────────────────────────────────────────
	clock := shared.SystemClock{}
	aggregator := stats.NewAggregator(progressRepo, historyRepo)

	// The worker evaluates inline; there is no request to keep fast here.
	evaluate := command.NewEvaluateHandler(catalogRepo, stateRepo, aggregator, nil, clock, logger)
	getLeaderboard := query.NewGetLeaderboardHandler(stateRepo, lbCache, clock, cfg.Engine.LeaderboardTTL, logger)

	sched := scheduler.NewScheduler(logger)

	rebuild := jobs.NewRebuildLeaderboardJob(
		progressRepo, getLeaderboard, nil, clock, cfg.Worker.ActivityWindowHours, logger)
	if err := sched.Register(rebuild, scheduler.NewIntervalSchedule(cfg.Worker.RebuildInterval)); err != nil {
		return err
	}

	sweep := jobs.NewEvaluationSweepJob(
		progressRepo, progressRepo, evaluate, cfg.Worker.ActivityWindowHours, logger)
	if err := sched.Register(sweep, scheduler.NewIntervalSchedule(cfg.Worker.SweepInterval)); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	if err := sched.Stop(); err != nil {
		return err
	}

	logger.Info("worker stopped")
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

	return postgres.NewConnection(ctx, pgCfg)
}

func redisCacheConfig(cfg *config.Config) redisinfra.Config {
	rCfg := redisinfra.DefaultConfig()
	rCfg.Host = cfg.Redis.Host
	rCfg.Port = cfg.Redis.Port
	rCfg.Password = cfg.Redis.Password
	rCfg.DB = cfg.Redis.DB
	return rCfg
}
