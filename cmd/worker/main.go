package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"publish-notifier/internal/config"
	pgRepo "publish-notifier/internal/infra/adapter/persistence/postgres"
	"publish-notifier/internal/infra/db"
	"publish-notifier/internal/infra/notifier"
	workerPkg "publish-notifier/internal/infra/worker"
	"publish-notifier/internal/observability/logging"
	obsmetrics "publish-notifier/internal/observability/metrics"
	pkgconfig "publish-notifier/internal/pkg/config"
	"publish-notifier/internal/repository"
	"publish-notifier/internal/resilience/circuitbreaker"
	"publish-notifier/internal/resilience/retry"
	"publish-notifier/internal/usecase/newssync"
	"publish-notifier/internal/usecase/notify"
)

const cursorKey = "notify:news_sync:cursor"

// waitForMigrations blocks until the API has created the notification tables.
func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const check = "SELECT 1 FROM slack_notification_logs LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(check); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	notifyCfg, err := config.LoadNotifyConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	waitForMigrations(logger, database)

	// ワーカーは専用のレジストリを /metrics で公開する
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := obsmetrics.RegisterDB(reg, database, "postgres"); err != nil {
		logger.Warn("db pool metrics not registered", slog.Any("error", err))
	}

	workerCfg := workerPkg.LoadConfigFromEnv(logger, pkgconfig.NewMetrics("news_sync", reg))
	logger.Info("worker configuration loaded",
		slog.String("schedule", workerCfg.Schedule),
		slog.String("timezone", workerCfg.Timezone),
		slog.Duration("sync_timeout", workerCfg.SyncTimeout),
		slog.Int("batch_limit", workerCfg.BatchLimit),
		slog.Duration("lookback", workerCfg.Lookback),
		slog.Int("health_port", workerCfg.HealthPort))

	p := buildPipeline(logger, notifyCfg, database)
	defer p.close(logger)

	job := &newssync.Job{
		Content:    p.content,
		Notifier:   p.service,
		Cursor:     p.cursor,
		BatchLimit: workerCfg.BatchLimit,
		Lookback:   workerCfg.Lookback,
	}
	metrics := workerPkg.NewMetrics(reg)
	health := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger, reg)

	go func() {
		if err := health.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	c := cron.New(
		cron.WithLocation(workerCfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err = c.AddFunc(workerCfg.Schedule, func() {
		runOnce(ctx, logger, job, workerCfg.SyncTimeout, metrics, health)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}

	if workerCfg.RunOnStart {
		runOnce(ctx, logger, job, workerCfg.SyncTimeout, metrics, health)
	}
	c.Start()
	health.SetReady(true)
	logger.Info("news sync worker started")

	<-ctx.Done()
	logger.Info("shutting down worker...")
	health.SetReady(false)

	// 実行中の同期が終わるまで待つ
	<-c.Stop().Done()
	logger.Info("worker stopped")
}

// runOnce executes one sync under its own deadline and records the outcome.
func runOnce(
	ctx context.Context,
	logger *slog.Logger,
	job *newssync.Job,
	timeout time.Duration,
	metrics *workerPkg.Metrics,
	health *workerPkg.HealthServer,
) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res, err := job.Run(runCtx)
	elapsed := time.Since(start)

	result := "success"
	switch {
	case err != nil:
		result = "failure"
	case res.Items == 0:
		result = "empty"
	}
	metrics.RecordRun(result, elapsed)
	metrics.RecordBatch(res.Items, res.Messages)
	if !res.Cursor.IsZero() {
		metrics.SetCursor(res.Cursor.PublishedAt)
	}

	status := workerPkg.RunStatus{Result: result, FinishedAt: time.Now(), Items: res.Items}
	if err != nil {
		status.Error = err.Error()
		logger.Error("news sync failed",
			slog.Any("error", err),
			slog.Int("items", res.Items),
			slog.Duration("duration", elapsed))
	} else {
		logger.Info("news sync completed",
			slog.Int("batches", res.Batches),
			slog.Int("items", res.Items),
			slog.Int("messages_sent", res.Messages),
			slog.Duration("duration", elapsed))
	}
	health.RecordRun(status)
}

type pipeline struct {
	content repository.ContentRepository
	service *notify.Service
	cursor  newssync.Cursor
	limiter *notifier.Limiter
	redis   *redis.Client
}

func (p *pipeline) close(logger *slog.Logger) {
	p.limiter.Close()
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			logger.Warn("failed to close redis", slog.Any("error", err))
		}
	}
}

// buildPipeline wires the same notification path as the API. With REDIS_URL
// set, the worker shares the API's send timeline and keeps its cursor there.
func buildPipeline(logger *slog.Logger, cfg *config.NotifyConfig, database *sql.DB) *pipeline {
	dbBreaker := circuitbreaker.NewDBCircuitBreaker(database, "postgres")
	contentRepo := pgRepo.NewContentRepo(dbBreaker)

	p := &pipeline{content: contentRepo}
	limiterCfg := notifier.LimiterConfig{
		Spacing:  cfg.Spacing,
		Capacity: cfg.QueueCapacity,
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		p.redis = redis.NewClient(opts)
		limiterCfg.Store = notifier.NewRedisSlotStore(p.redis, cfg.QueueCapacity)
		p.cursor = workerPkg.NewRedisCursor(p.redis, cursorKey)
	} else {
		logger.Warn("REDIS_URL not set; news sync cursor is kept in memory")
		p.cursor = &workerPkg.MemoryCursor{}
	}
	p.limiter = notifier.NewLimiter(limiterCfg)

	deliverer := notifier.NewDeliverer(notifier.DelivererConfig{
		Retry: retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.Backoff,
			MaxDelay:     cfg.MaxBackoff(),
			Multiplier:   2.0,
			ShouldRetry:  func(error) bool { return true },
		},
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}, p.limiter)

	p.service = notify.NewService(
		notify.Config{Timeout: cfg.Timeout},
		notify.NewResolver(pgRepo.NewDestinationRepo(dbBreaker)),
		contentRepo,
		notifier.NewFormatter(cfg.SiteBaseURL),
		deliverer,
		notify.NewRecorder(pgRepo.NewDeliveryLogRepo(dbBreaker)),
	)
	return p
}
