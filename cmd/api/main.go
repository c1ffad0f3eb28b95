package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"publish-notifier/internal/config"
	pgRepo "publish-notifier/internal/infra/adapter/persistence/postgres"
	"publish-notifier/internal/infra/db"
	"publish-notifier/internal/infra/notifier"
	"publish-notifier/internal/observability/logging"
	obsmetrics "publish-notifier/internal/observability/metrics"
	"publish-notifier/internal/observability/tracing"
	"publish-notifier/internal/resilience/circuitbreaker"
	"publish-notifier/internal/resilience/retry"
	pkgconfig "publish-notifier/pkg/config"

	destUC "publish-notifier/internal/usecase/destination"
	"publish-notifier/internal/usecase/notify"

	hhttp "publish-notifier/internal/handler/http"
	hauth "publish-notifier/internal/handler/http/auth"
	hdest "publish-notifier/internal/handler/http/destination"
	hnotify "publish-notifier/internal/handler/http/notification"
	"publish-notifier/internal/handler/http/requestid"
	authservice "publish-notifier/internal/service/auth"
)

// timeoutGrace lets the notification service answer its own deadline before
// the HTTP guard steps in.
const timeoutGrace = time.Second

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.LoadNotifyConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := initTracing()
	defer shutdownTracing()

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	app := buildApp(ctx, logger, cfg, database)
	defer app.close(logger)

	runServer(ctx, logger, app.handler, getVersion())
}

func initTracing() func() {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
}

func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := obsmetrics.RegisterDB(prometheus.DefaultRegisterer, database, "postgres"); err != nil {
		logger.Warn("db pool metrics not registered", slog.Any("error", err))
	}
	return database
}

func getVersion() string {
	return pkgconfig.GetEnvString("VERSION", "dev")
}

type app struct {
	handler http.Handler
	limiter *notifier.Limiter
	redis   *redis.Client
}

func (a *app) close(logger *slog.Logger) {
	// 待機中の送信を解放してから Redis を閉じる
	a.limiter.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("failed to close redis", slog.Any("error", err))
		}
	}
}

// buildApp wires repositories, the notification pipeline and routes.
func buildApp(ctx context.Context, logger *slog.Logger, cfg *config.NotifyConfig, database *sql.DB) *app {
	dbBreaker := circuitbreaker.NewDBCircuitBreaker(database, "postgres")
	destRepo := pgRepo.NewDestinationRepo(dbBreaker)
	contentRepo := pgRepo.NewContentRepo(dbBreaker)
	logRepo := pgRepo.NewDeliveryLogRepo(dbBreaker)

	destSvc := &destUC.Service{Repo: destRepo}
	seedDestinations(ctx, logger, cfg, destSvc)

	limiterCfg := notifier.LimiterConfig{
		Spacing:  cfg.Spacing,
		Capacity: cfg.QueueCapacity,
	}
	var (
		redisClient *redis.Client
		slotPinger  hhttp.Pinger
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		store := notifier.NewRedisSlotStore(redisClient, cfg.QueueCapacity)
		limiterCfg.Store = store
		slotPinger = store
		logger.Info("shared send timeline enabled", slog.String("redis_addr", opts.Addr))
	}
	limiter := notifier.NewLimiter(limiterCfg)

	deliverer := notifier.NewDeliverer(notifier.DelivererConfig{
		Retry: retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.Backoff,
			MaxDelay:     cfg.MaxBackoff(),
			Multiplier:   2.0,
			ShouldRetry:  func(error) bool { return true },
		},
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}, limiter)

	notifySvc := notify.NewService(
		notify.Config{Timeout: cfg.Timeout},
		notify.NewResolver(destRepo),
		contentRepo,
		notifier.NewFormatter(cfg.SiteBaseURL),
		deliverer,
		notify.NewRecorder(logRepo),
	)

	users, err := hauth.ValidateUsers(hauth.UsersFromEnv(), logger)
	if err != nil {
		logger.Error("user credentials validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	authSvc := authservice.NewAuthService(hauth.NewUserProvider(users))
	logger.Info("auth provider configured",
		slog.String("provider", authSvc.Provider().Name()),
		slog.Int("users", len(users)))
	tokens := hauth.NewTokenIssuer(cfg.JWTSecret, hauth.DefaultTokenTTL)

	mux := http.NewServeMux()

	// 認証エンドポイントは1分間に5リクエストまで
	tokenLimiter := hhttp.NewClientRateLimiter(5, time.Minute)
	mux.Handle("POST /auth/token", tokenLimiter.Limit(hauth.TokenHandler(authSvc, tokens)))

	version := getVersion()
	mux.Handle("GET /health", &hhttp.HealthHandler{
		DB:        database,
		Version:   version,
		Limiter:   limiter,
		SlotStore: slotPinger,
		QueueWarn: cfg.QueueCapacity / 2,
	})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	hnotify.Register(mux, notifySvc,
		hhttp.Timeout(cfg.Timeout+timeoutGrace, hnotify.TimeoutBody(cfg.Timeout)),
		hauth.CallerAuth(cfg.ServiceRoleKey, tokens, authSvc),
	)
	hdest.Register(mux, destSvc, hauth.Authz(tokens))

	return &app{
		handler: applyMiddleware(logger, mux),
		limiter: limiter,
		redis:   redisClient,
	}
}

// seedDestinations applies DESTINATIONS_FILE when configured. A bad file
// stops startup; an unreachable database already did.
func seedDestinations(ctx context.Context, logger *slog.Logger, cfg *config.NotifyConfig, svc *destUC.Service) {
	if cfg.DestinationsFile == "" {
		return
	}
	seeds, err := config.LoadDestinationsFile(cfg.DestinationsFile)
	if err != nil {
		logger.Error("failed to load destinations file", slog.Any("error", err))
		os.Exit(1)
	}
	inputs := make([]destUC.CreateInput, 0, len(seeds))
	for _, s := range seeds {
		inputs = append(inputs, destUC.CreateInput{
			Category:   s.Category,
			Channel:    s.Channel,
			WebhookURL: s.WebhookURL,
			Enabled:    s.Enabled,
		})
	}
	if err := svc.Seed(ctx, inputs); err != nil {
		logger.Error("failed to seed destinations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("destinations seeded", slog.Int("count", len(inputs)))
}

// applyMiddleware wraps the mux, outermost first:
// Request ID → Tracing → Recovery → Logging → Input validation → Metrics.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	h := hhttp.MetricsMiddleware(handler)
	h = hhttp.InputValidation(hhttp.DefaultMaxBodyBytes)(h)
	h = hhttp.Logging(logger)(h)
	h = hhttp.Recover(logger)(h)
	h = tracing.Middleware(h)
	h = requestid.Middleware(h)
	return h
}

func runServer(ctx context.Context, logger *slog.Logger, handler http.Handler, version string) {
	addr := ":" + pkgconfig.GetEnvString("PORT", "8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
		return
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	// 実行中の通知がタイムアウトまで走り切れるように待つ
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
