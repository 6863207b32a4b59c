package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelfront/internal/api"
	"hotelfront/internal/backend"
	"hotelfront/internal/config"
	"hotelfront/internal/database"
	"hotelfront/internal/domain"
	"hotelfront/internal/events"
	"hotelfront/internal/latest"
	"hotelfront/internal/logging"
	"hotelfront/internal/metrics"
	"hotelfront/internal/repository"
	"hotelfront/internal/service"
	"hotelfront/internal/session"
	"hotelfront/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// credentialPurgeAge drops sqlite rows no session has touched for a month.
const credentialPurgeAge = 30 * 24 * time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	creds, throttle, cleanup, err := initCredentialStore(ctx, cfg, redisClient, &logger)
	if err != nil {
		return err
	}
	defer cleanup()

	client := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithPaymentsURL(cfg.Backend.PaymentsURL),
		backend.WithLogger(&logger),
	)
	if redisClient != nil && cfg.Cache.RoomsTTL > 0 {
		client.UseRedisCache(redisClient, cfg.Cache.RoomsTTL)
	}

	eventBus := events.NewEventBus()
	subscribeEvents(eventBus, &logger)

	searches := latest.NewTracker()
	sessions := session.NewManager(creds, client, cfg.Session.IdleTimeout, &logger, session.WithEvents(eventBus))
	sessions.OnEvict(searches.Forget)
	go sessions.Run(ctx)

	svc := api.Services{
		Auth:      service.NewAuthService(client, &logger),
		Catalog:   service.NewCatalogService(client, 0, &logger),
		Checkout:  service.NewCheckoutService(client, eventBus, &logger),
		Admin:     service.NewAdminService(eventBus, &logger),
		Concierge: service.NewConciergeService(client, searches, &logger),
	}
	httpServer := api.NewHTTPServer(cfg.Server, sessions, svc, throttle, &logger)

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "storefront-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		if cfg.Session.Store == config.StoreRedis {
			// the failover store keeps probing, so keep the client
			logger.Warn().Err(err).Msg("redis unavailable at startup, sessions fall back to memory")
			return redisClient
		}
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCredentialStore picks where session credentials live and what counts login attempts.
func initCredentialStore(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) (domain.CredentialStore, domain.LoginThrottle, func(), error) {
	memory := repository.NewMemoryCredentialStore(cfg.Session.CredentialTTL)

	switch cfg.Session.Store {
	case config.StoreSQLite:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, nil, err
		}
		go worker.NewPurgeWorker(db, credentialPurgeAge, 24*time.Hour, logger).Start(ctx)

		var throttle domain.LoginThrottle = memory
		if redisClient != nil {
			throttle = repository.NewRedisCredentialStore(redisClient, cfg.Session.CredentialTTL)
		}
		return db, throttle, func() { _ = db.Close() }, nil

	case config.StoreRedis:
		primary := repository.NewRedisCredentialStore(redisClient, cfg.Session.CredentialTTL)
		store := repository.NewFailoverCredentialStore(primary, memory, repository.DefaultRetryPolicy, logger)
		return store, store, func() {}, nil

	default:
		logger.Warn().Msg("memory session store: logins do not survive a restart")
		return memory, memory, func() {}, nil
	}
}

func subscribeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	l := logging.Component(logger, "events")
	bus.Subscribe(func(ev *events.Event) error {
		var p events.SessionEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		l.Info().Str("event", ev.Type).Str("session_id", p.SessionID).Int64("user_id", p.UserID).Str("reason", p.Reason).Msg("session event")
		return nil
	}, events.EventSessionLogin, events.EventSessionLogout, events.EventSessionExpired)

	bus.Subscribe(func(ev *events.Event) error {
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		l.Info().Str("event", ev.Type).Int64("room_id", p.RoomID).Int64("user_id", p.UserID).Str("confirmation_code", p.ConfirmationCode).Msg("booking event")
		return nil
	}, events.EventBookingCreated, events.EventBookingCanceled)

	bus.Subscribe(func(ev *events.Event) error {
		var p events.AdminEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		l.Info().Str("event", ev.Type).Int64("target_id", p.TargetID).Int64("changed_by_id", p.ChangedByID).Msg("admin event")
		return nil
	}, events.EventRoomDeleted, events.EventUserDeleted)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("storefront stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
