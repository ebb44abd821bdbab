// Package main - точка входа REST API ClassPulse Insight Hub.
//
// API обслуживает панель учителя: индикаторы внимания, предложения бейджей,
// действия над рекомендациями. Архитектура следует принципам Clean
// Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: реализация репозиториев, внешние API
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/classpulse/insight-hub/config"
	"github.com/classpulse/insight-hub/internal/application/command"
	"github.com/classpulse/insight-hub/internal/application/eventhandler"
	"github.com/classpulse/insight-hub/internal/application/query"
	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/domain/shared"
	"github.com/classpulse/insight-hub/internal/infrastructure/external/lms"
	"github.com/classpulse/insight-hub/internal/infrastructure/messaging"
	"github.com/classpulse/insight-hub/internal/infrastructure/persistence/postgres"
	infraredis "github.com/classpulse/insight-hub/internal/infrastructure/persistence/redis"
	httpiface "github.com/classpulse/insight-hub/internal/interface/http"
	"github.com/classpulse/insight-hub/internal/interface/http/handlers"
	"github.com/classpulse/insight-hub/pkg/logger"
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
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting ClassPulse Insight Hub API",
		"app", cfg.App.Name,
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL,
		postgres.WithPoolLimits(int32(cfg.Database.MaxOpenConns), int32(cfg.Database.MaxIdleConns)),
		postgres.WithConnLifetimes(cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *infraredis.Cache
	var attentionCache insight.AttentionCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := infraredis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = infraredis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			// Кеш внимания отключается флагом отдельно от кеша LMS-контекста.
			if cfg.Features.AttentionCachingEnabled(nil) {
				attentionCache = infraredis.NewAttentionCacheWithTTL(
					redisCache,
					cfg.Insight.StudentStatusTTL,
					cfg.Insight.DashboardTTL,
				)
			}
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	recRepo := postgres.NewRecommendationRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.EnableMetrics = cfg.Observability.MetricsEnabled
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ LMS КЛИЕНТА
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing LMS client...")
	lmsConfig := lms.DefaultClientConfig(cfg.LMS.BaseURL)
	lmsConfig.APIKey = cfg.LMS.APIKey
	lmsConfig.Timeout = cfg.LMS.RequestTimeout
	lmsConfig.RateLimiterConfig.RequestsPerSecond = float64(cfg.LMS.RateLimit) / 60.0
	lmsConfig.RateLimiterConfig.BurstSize = cfg.LMS.RateLimitBurst
	lmsConfig.MaxRetries = cfg.LMS.MaxRetries
	lmsConfig.RetryBaseDelay = cfg.LMS.RetryBaseDelay
	lmsConfig.RetryMaxDelay = cfg.LMS.RetryMaxDelay
	lmsConfig.BreakerFailureThreshold = cfg.LMS.CircuitBreakerThreshold
	lmsConfig.BreakerTimeout = cfg.LMS.CircuitBreakerTimeout
	lmsConfig.BreakerHalfOpenMax = cfg.LMS.CircuitBreakerHalfOpenMax
	lmsConfig.Logger = log
	lmsConfig.Debug = cfg.App.Debug
	lmsClient := lms.NewClient(lmsConfig)

	contextProvider := lms.NewContextProvider(lmsClient, badgeRepo, redisCache, log)
	contextProvider.SetSnapshotTTL(cfg.LMS.CacheTTL)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ДОМЕННЫЕ СЕРВИСЫ И ОБРАБОТЧИКИ USE CASES
	// ─────────────────────────────────────────────────────────────────────────
	classifier := insight.NewDefaultClassifier()
	evaluator := badge.NewEvaluator(badge.DefaultCriteria(), badge.TunedCooldownPolicy(
		cfg.Badge.ProgressCooldownDays,
		cfg.Badge.MasteryCooldownDays,
		cfg.Badge.PersistenceCooldownDays,
	))

	getStudentAttention := query.NewGetStudentAttentionHandler(recRepo, classifier, attentionCache, log)
	getAssignmentAttention := query.NewGetAssignmentAttentionHandler(recRepo, classifier)
	getDashboard := query.NewGetAttentionDashboardHandler(recRepo, badgeRepo, classifier, attentionCache, log)
	getBadgeSuggestions := query.NewGetBadgeSuggestionsHandler(badgeRepo)

	createRecommendation := command.NewCreateRecommendationHandler(recRepo, attentionCache, eventBus, log)
	resolveRecommendation := command.NewResolveRecommendationHandler(recRepo, attentionCache, eventBus, log)
	evaluateBadges := command.NewEvaluateBadgesHandler(contextProvider, badgeRepo, evaluator, eventBus, log)
	awardBadge := command.NewAwardBadgeHandler(badgeRepo, eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Features.IsEnabled(config.FeatureBadgeAutoEvaluate, nil) {
		onAttempt := eventhandler.NewOnAttemptCompletedHandler(contextProvider, evaluateBadges, log)
		if err := eventBus.Subscribe(shared.EventAttemptCompleted, onAttempt.Handle); err != nil {
			return fmt.Errorf("failed to subscribe attempt handler: %w", err)
		}
	}

	onResolved := eventhandler.NewOnRecommendationResolvedHandler(attentionCache, log)
	if err := onResolved.Register(eventBus); err != nil {
		return fmt.Errorf("failed to subscribe resolution handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKER
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}
	healthChecker.AddCheck("lms", handlers.NewLMSCheck(lmsClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpiface.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.EnableCORS = cfg.HTTP.EnableCORS
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	serverConfig.APIKeys = cfg.HTTP.APIKeyHashes

	httpLogLevel := logger.LevelInfo
	if cfg.App.Debug {
		httpLogLevel = logger.LevelDebug
	}
	httpLog := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     httpLogLevel,
		AddCaller: false,
	})

	server := httpiface.NewServer(serverConfig, httpiface.Dependencies{
		GetStudentAttention:    getStudentAttention,
		GetAssignmentAttention: getAssignmentAttention,
		GetAttentionDashboard:  getDashboard,
		GetBadgeSuggestions:    getBadgeSuggestions,
		CreateRecommendation:   createRecommendation,
		ResolveRecommendation:  resolveRecommendation,
		EvaluateBadges:         evaluateBadges,
		AwardBadge:             awardBadge,
		Logger:                 httpLog,
		HealthChecker:          healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("ClassPulse Insight Hub API is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slogLevel(cfg.Observability.LogLevel),
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// slogLevel переводит строковый уровень из конфигурации в slog.Level.
func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
