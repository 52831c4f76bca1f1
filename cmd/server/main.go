// Package main is the entry point for the progress API server.
//
// The server exposes the progress engine over REST: activity recording,
// progress and streak summaries, achievements, the XP leaderboard and
// certificates. Background maintenance lives in cmd/worker.
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
	"github.com/nivesh-labs/nivesh-progress/internal/application/command"
	"github.com/nivesh-labs/nivesh-progress/internal/application/eventhandler"
	"github.com/nivesh-labs/nivesh-progress/internal/application/query"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/messaging"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/persistence/postgres"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/persistence/redis"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/service"
	httpapi "github.com/nivesh-labs/nivesh-progress/internal/interface/http"
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

	log.Info("starting progress API server",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()
	log.Info("database connection established")

	if cfg.Database.RunMigrations {
		if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache       *redis.Cache
		leaderboardCache *redis.LeaderboardCache
	)
	if !cfg.Redis.Disabled {
		redisCache, err = redis.NewCache(redisConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisCache.Close() }()
		leaderboardCache = redis.NewLeaderboardCache(redisCache)
		log.Info("redis connection established")
	} else {
		log.Warn("redis disabled: no summary cache, no idempotency replay, leaderboard from postgres")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES AND UNIT OF WORK
	// ─────────────────────────────────────────────────────────────────────────
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)
	uow := postgres.NewUnitOfWork(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewEventBus(log, prometheus.DefaultRegisterer)
	defer eventBus.Close()

	if err := subscribeHandlers(eventBus, leaderboardCache, redisCache, log); err != nil {
		return fmt.Errorf("failed to subscribe event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ACHIEVEMENT CATALOG SEEDING
	// ─────────────────────────────────────────────────────────────────────────
	if err := command.NewSeedAchievementsHandler(uow, log).Handle(ctx); err != nil {
		return fmt.Errorf("failed to seed achievement catalog: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	var idempotency command.IdempotencyStore
	var summaryCache query.Cache
	if redisCache != nil {
		idempotency = redis.NewIdempotencyStore(redisCache)
		summaryCache = redisCache
	}

	recordActivity := command.NewRecordActivityHandler(uow, idempotency, eventBus, log)
	acknowledge := command.NewAcknowledgeAchievementsHandler(uow)

	leaderboardReader := service.NewLeaderboardReader(leaderboardCache, ledgerRepo, log)

	progressSummary := query.NewGetProgressSummaryHandler(ledgerRepo, streakRepo, summaryCache, redis.TTLSummaryCache, log)
	streakSummary := query.NewGetStreakSummaryHandler(streakRepo)
	achievements := query.NewGetAchievementsHandler(achievementRepo, ledgerRepo, streakRepo)
	leaderboard := query.NewGetLeaderboardHandler(leaderboardReader)
	certificates := query.NewGetCertificatesHandler(certificateRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	handler := httpapi.NewProgressHandler(
		recordActivity, acknowledge,
		progressSummary, streakSummary, achievements, leaderboard, certificates,
	)

	checks := map[string]httpapi.HealthChecker{
		"postgres": httpapi.HealthFunc(dbConn.Ping),
	}
	if redisCache != nil {
		checks["redis"] = httpapi.HealthFunc(redisCache.Ping)
	}

	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.EnableMetrics = cfg.HTTP.EnableMetrics

	server := httpapi.NewServer(serverCfg, handler, checks, log)
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

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

// subscribeHandlers attaches the post-commit subscribers. The Redis-backed
// ones are skipped when Redis is disabled; the worker rebuild jobs keep
// derived state correct either way, just less fresh.
func subscribeHandlers(bus *messaging.EventBus, leaderboard *redis.LeaderboardCache, cache *redis.Cache, log *zap.Logger) error {
	if leaderboard != nil && cache != nil {
		onXPGained := eventhandler.NewOnXPGained(leaderboard, cache, log)
		if err := bus.Subscribe(shared.EventXPGained, onXPGained); err != nil {
			return err
		}
	}

	if err := bus.Subscribe(shared.EventLevelUp, eventhandler.NewOnLevelUp(log)); err != nil {
		return err
	}
	if err := bus.Subscribe(shared.EventAchievementUnlocked, eventhandler.NewOnAchievementUnlocked(log)); err != nil {
		return err
	}

	metrics := eventhandler.NewEngineMetrics(prometheus.DefaultRegisterer)
	for _, eventType := range []shared.EventType{
		shared.EventXPGained, shared.EventLevelUp, shared.EventAchievementUnlocked,
	} {
		if err := bus.Subscribe(eventType, metrics); err != nil {
			return err
		}
	}
	return nil
}
