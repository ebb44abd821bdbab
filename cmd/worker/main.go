// Package main - точка входа для фоновых процессов ClassPulse Insight Hub.
//
// Worker выполняет периодические задачи по расписанию:
// - Переоценка критериев бейджей для учеников с активными рекомендациями
// - Прогрев кеша панели внимания
// - Автозакрытие устаревших рекомендаций
//
// Worker запускается отдельно от API и может масштабироваться независимо.
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
	"github.com/classpulse/insight-hub/internal/application/query"
	"github.com/classpulse/insight-hub/internal/domain/badge"
	"github.com/classpulse/insight-hub/internal/domain/insight"
	"github.com/classpulse/insight-hub/internal/infrastructure/external/lms"
	"github.com/classpulse/insight-hub/internal/infrastructure/persistence/postgres"
	infraredis "github.com/classpulse/insight-hub/internal/infrastructure/persistence/redis"
	"github.com/classpulse/insight-hub/internal/infrastructure/scheduler"
	"github.com/classpulse/insight-hub/internal/infrastructure/scheduler/jobs"
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

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_ENABLED=false), nothing to run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting ClassPulse Insight Hub worker",
		"app", cfg.App.Name,
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
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

	// Миграции прогоняет API при старте; worker лишь проверяет соединение.

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
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

		redisCache, err = infraredis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			attentionCache = infraredis.NewAttentionCacheWithTTL(
				redisCache,
				cfg.Insight.StudentStatusTTL,
				cfg.Insight.DashboardTTL,
			)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ, LMS КЛИЕНТ И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	recRepo := postgres.NewRecommendationRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)

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
	lmsClient := lms.NewClient(lmsConfig)

	contextProvider := lms.NewContextProvider(lmsClient, badgeRepo, redisCache, log)
	contextProvider.SetSnapshotTTL(cfg.LMS.CacheTTL)

	classifier := insight.NewDefaultClassifier()
	evaluator := badge.NewEvaluator(badge.DefaultCriteria(), badge.TunedCooldownPolicy(
		cfg.Badge.ProgressCooldownDays,
		cfg.Badge.MasteryCooldownDays,
		cfg.Badge.PersistenceCooldownDays,
	))

	getDashboard := query.NewGetAttentionDashboardHandler(recRepo, badgeRepo, classifier, attentionCache, log)

	// Worker не публикует события во внешние процессы: шина нужна только
	// для реакций внутри API, поэтому обработчикам передаётся nil.
	evaluateBadges := command.NewEvaluateBadgesHandler(contextProvider, badgeRepo, evaluator, nil, log)
	resolveRecommendation := command.NewResolveRecommendationHandler(recRepo, attentionCache, nil, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕГИСТРАЦИЯ ЗАДАЧ В ПЛАНИРОВЩИКЕ
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	schedCfg.Timezone = cfg.App.Location
	schedCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	sched := scheduler.NewScheduler(schedCfg)

	evaluateCfg := jobs.DefaultEvaluateFlaggedConfig()
	evaluateCfg.Timeout = cfg.Scheduler.JobTimeout
	evaluateJob := jobs.NewEvaluateFlaggedStudentsJob(recRepo, evaluateBadges, log, evaluateCfg)
	if err := sched.Register(evaluateJob, scheduler.NewIntervalSchedule(cfg.Scheduler.EvaluateBadgesInterval)); err != nil {
		return fmt.Errorf("failed to register %s: %w", evaluateJob.Name(), err)
	}

	// Прогревать кеш панели имеет смысл только когда панель включена.
	if cfg.Features.IsEnabled(config.FeatureAttentionDashboard, nil) {
		refreshJob := jobs.NewRefreshDashboardJob(getDashboard, attentionCache, log, jobs.DefaultRefreshDashboardConfig())
		if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshDashboardInterval)); err != nil {
			return fmt.Errorf("failed to register %s: %w", refreshJob.Name(), err)
		}
	}

	reviewCron, err := scheduler.ParseCronExpression(cfg.Scheduler.ReviewStaleCron)
	if err != nil {
		return fmt.Errorf("invalid SCHEDULER_REVIEW_STALE_CRON: %w", err)
	}
	reviewJob := jobs.NewReviewStaleRecommendationsJob(recRepo, resolveRecommendation, log, jobs.DefaultReviewStaleConfig())
	if err := sched.Register(reviewJob, reviewCron); err != nil {
		return fmt.Errorf("failed to register %s: %w", reviewJob.Name(), err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	jobNames := make([]string, 0)
	for _, info := range sched.ListJobs() {
		jobNames = append(jobNames, info.Name)
	}
	log.Info("worker is running", "jobs", jobNames)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
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
