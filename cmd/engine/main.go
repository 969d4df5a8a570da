// Package main - точка входа движка CogniQuest.
//
// Движок отвечает за серверную часть когнитивного тренажёра:
// - Подсчёт очков и проверка ответов
// - Прогрессия игрока (XP, уровни, серии, разблокировка категорий)
// - Анти-чит: валидация попыток и фоновое сканирование паттернов
// - Оркестрация игровых сессий с таймерами обратного отсчёта
//
// Состояние прогресса пишется отложенно (write-behind): игровой путь
// работает из памяти, PostgreSQL догоняет по дебаунсу и по расписанию.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cogniquest/cogniquest-engine/config"
	"github.com/cogniquest/cogniquest-engine/internal/application"
	"github.com/cogniquest/cogniquest-engine/internal/application/command"
	"github.com/cogniquest/cogniquest-engine/internal/application/eventhandler"
	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/application/query"
	"github.com/cogniquest/cogniquest-engine/internal/domain/anticheat"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
	"github.com/cogniquest/cogniquest-engine/internal/infrastructure/messaging"
	"github.com/cogniquest/cogniquest-engine/internal/infrastructure/persistence/postgres"
	"github.com/cogniquest/cogniquest-engine/internal/infrastructure/persistence/redis"
	"github.com/cogniquest/cogniquest-engine/internal/infrastructure/scheduler"
	"github.com/cogniquest/cogniquest-engine/internal/infrastructure/scheduler/jobs"
	"github.com/cogniquest/cogniquest-engine/internal/infrastructure/service"
	"github.com/cogniquest/cogniquest-engine/pkg/logger"
	"github.com/cogniquest/cogniquest-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

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
	slogger := setupSlog(cfg)
	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	slogger.Info("starting CogniQuest engine",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	slogger.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МИГРАЦИИ СХЕМЫ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		slogger.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		slogger.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	progressRepo := postgres.NewProgressRepository(dbConn)
	puzzleRepo := postgres.NewPuzzleRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REDIS (опционально: кеш снимков прогресса и pub/sub шина)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache    *redis.Cache
		progressCache *redis.ProgressCache
	)
	if !cfg.Redis.Disabled {
		slogger.Info("connecting to Redis...")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			slogger.Warn("failed to connect to Redis, degrading to database-only mode", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			progressCache = redis.NewProgressCache(redisCache)
			slogger.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = slogger

	var eventBus shared.EventBus
	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubAdapter(redisCache),
			LocalBusConfig: busConfig,
			Logger:         slogger,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		eventBus = redisBus
	} else {
		eventBus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer func() {
		slogger.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ДОМЕННЫЕ СЕРВИСЫ (анти-чит, реестр сессий)
	// ─────────────────────────────────────────────────────────────────────────
	detector := anticheat.NewDetector()
	limiter := anticheat.NewAttemptLimiter(anticheat.LimiterConfig{
		MaxAttempts: cfg.Engine.MaxAttemptsPerWindow,
		Window:      cfg.Engine.AttemptWindow,
	})
	registry := orchestrator.NewRegistry()
	clock := timeutil.NewRealClock()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ХРАНИЛИЩЕ ПРОГРЕССА (write-behind)
	// ─────────────────────────────────────────────────────────────────────────
	var snapshotCache service.SnapshotCache
	if progressCache != nil {
		snapshotCache = progressCache
	}
	store := service.NewProgressStore(service.StoreConfig{
		Repository: progressRepo,
		Cache:      snapshotCache,
		Clock:      clock,
		Logger:     appLog,
		Events:     eventBus,
		Debounce:   cfg.Engine.FlushDebounce,
	})
	defer func() {
		slogger.Info("flushing progress store...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		_ = store.Close(shutdownCtx)
	}()

	notifier := service.NewLogNotifier(slogger)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = slogger
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	if cfg.App.Debug {
		dispatcher.Use(messaging.LoggingMiddleware(slogger))
	}

	violationHandler := eventhandler.NewOnViolationFlaggedHandler(notifier, slogger)
	levelUpHandler := eventhandler.NewOnLevelUpHandler(notifier, slogger)

	if err := dispatcher.Register(shared.EventViolationFlagged, "notify_violation", violationHandler.Handle); err != nil {
		return fmt.Errorf("failed to register violation handler: %w", err)
	}
	for _, eventType := range []shared.EventType{
		shared.EventLevelUp,
		shared.EventCategoryUnlock,
	} {
		if err := dispatcher.Register(eventType, "notify_level_up", levelUpHandler.Handle); err != nil {
			return fmt.Errorf("failed to register level-up handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	orchConfig := orchestrator.Config{
		Clock:    clock,
		Logger:   appLog,
		Detector: detector,
		Limiter:  limiter,
		Progress: store,
		Events:   eventBus,
		Notifier: notifier,
	}

	startSession := command.NewStartSessionHandler(puzzleRepo, store, registry, orchConfig)
	if cfg.Features.IsEnabled(config.FeatureExperimentalPuzzleSigning, nil) {
		startSession = startSession.WithSigner(
			service.NewIntegritySigner([]byte(cfg.Engine.IntegritySecret)))
	}

	engine := application.NewEngine(
		registry,
		startSession,
		command.NewSubmitAnswerHandler(registry),
		command.NewSessionControlHandler(registry),
		command.NewResetProgressHandler(store, detector, limiter, registry, eventBus, appLog),
		query.NewGetProgressHandler(store),
		query.NewGetSessionHandler(registry),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ПЛАНИРОВЩИК ФОНОВЫХ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:        slogger,
			Clock:         clock,
			Timezone:      cfg.App.Location,
			EnableMetrics: cfg.Observability.MetricsEnabled,
		})

		flushJob := jobs.NewFlushProgressJob(store, slogger, jobs.DefaultFlushProgressConfig())
		if err := sched.Register(flushJob, scheduler.NewIntervalSchedule(cfg.Scheduler.FlushInterval)); err != nil {
			return fmt.Errorf("failed to register flush job: %w", err)
		}

		if cfg.Features.IsEnabled(config.FeatureAnticheatPatternScan, nil) {
			scanJob := jobs.NewScanPatternsJob(detector, registry, eventBus, slogger, jobs.DefaultScanPatternsConfig())
			if err := sched.Register(scanJob, scheduler.NewIntervalSchedule(cfg.Scheduler.PatternScanInterval)); err != nil {
				return fmt.Errorf("failed to register scan job: %w", err)
			}
		}

		if cfg.Features.IsEnabled(config.FeatureNotifyStreakReminder, nil) {
			reminderJob := jobs.NewStreakReminderJob(
				streakSource{repo: progressRepo},
				notifier,
				clock,
				slogger,
				jobs.DefaultStreakReminderConfig(),
			)
			reminderCron := fmt.Sprintf("%d %d * * *", cfg.Scheduler.ReminderMinute, cfg.Scheduler.ReminderHour)
			reminderSchedule, err := scheduler.ParseCronExpression(reminderCron)
			if err != nil {
				return fmt.Errorf("invalid reminder schedule: %w", err)
			}
			if err := sched.Register(reminderJob, reminderSchedule); err != nil {
				return fmt.Errorf("failed to register reminder job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			slogger.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("CogniQuest engine is running",
		"redis", redisCache != nil,
		"scheduler", cfg.Scheduler.Enabled,
		"live_sessions", engine.LiveSessionCount(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		slogger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slogger.Info("context cancelled")
	}

	slogger.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	// Живые сессии бросаем: прогресс начисляется только за завершённые
	// сессии, а write-behind состояние сбрасывается в defer.
	if n := engine.AbandonLiveSessions(); n > 0 {
		slogger.Info("abandoned live sessions", "count", n)
	}

	slogger.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// streakSource адаптирует репозиторий прогресса к источнику серий
// для задачи напоминаний.
type streakSource struct {
	repo *postgres.ProgressRepository
}

func (s streakSource) ActiveStreaks(ctx context.Context) ([]jobs.StreakRecord, error) {
	rows, err := s.repo.ActiveStreaks(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]jobs.StreakRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, jobs.StreakRecord{
			UserID:       row.UserID,
			Streak:       row.Streak,
			LastPlayDate: row.LastPlayDate,
		})
	}
	return records, nil
}

// setupSlog настраивает структурированное логирование.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
