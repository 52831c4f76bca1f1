// Package main is the entry point for the progress background worker.
//
// The worker runs the periodic maintenance jobs: rebuilding the Redis
// leaderboard from the XP ledger and issuing queued certificates. The
// REST API lives in cmd/server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/config"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/persistence/postgres"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/persistence/redis"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/scheduler"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/scheduler/jobs"
	"github.com/nivesh-labs/nivesh-progress/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log, err := logger.New(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting progress worker",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("version", cfg.App.Version),
	)

	if !cfg.Worker.Enabled {
		log.Warn("worker disabled by configuration, exiting")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()
	log.Info("database connection established")

	// The worker also migrates so it can run against a fresh database.
	if cfg.Database.RunMigrations {
		if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var leaderboardCache *redis.LeaderboardCache
	if !cfg.Redis.Disabled {
		redisCache, err := redis.NewCache(redisConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisCache.Close() }()
		leaderboardCache = redis.NewLeaderboardCache(redisCache)
		log.Info("redis connection established")
	} else {
		log.Warn("redis disabled: leaderboard rebuild job will not run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULED JOBS
	// ─────────────────────────────────────────────────────────────────────────
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)

	sched := scheduler.New(log, prometheus.DefaultRegisterer)

	if leaderboardCache != nil {
		sched.Register(
			jobs.NewRebuildLeaderboard(ledgerRepo, leaderboardCache, log),
			cfg.Worker.RebuildLeaderboardInterval,
		)
	}
	sched.Register(
		jobs.NewIssueCertificates(certificateRepo, log),
		cfg.Worker.IssueCertificatesInterval,
	)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	sched.Stop()
	log.Info("shutdown completed")
	return nil
}

// connectPostgres connects using DATABASE_URL when present, the
// individual settings otherwise.
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
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout
	return postgres.NewConnection(ctx, pgCfg)
}

func redisConfig(cfg *config.Config) redis.Config {
	rCfg := redis.DefaultConfig()
	rCfg.Host = cfg.Redis.Host
	rCfg.Port = cfg.Redis.Port
	rCfg.Password = cfg.Redis.Password
	rCfg.DB = cfg.Redis.DB
	rCfg.PoolSize = cfg.Redis.PoolSize
	rCfg.MinIdleConns = cfg.Redis.MinIdleConns
	rCfg.DialTimeout = cfg.Redis.DialTimeout
	rCfg.ReadTimeout = cfg.Redis.ReadTimeout
	rCfg.WriteTimeout = cfg.Redis.WriteTimeout
	return rCfg
}
