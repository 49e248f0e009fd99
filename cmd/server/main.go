package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flight_routes/internal/cache"
	"flight_routes/internal/config"
	"flight_routes/internal/handlers"
	"flight_routes/internal/kafka"
	"flight_routes/internal/logging"
	"flight_routes/internal/metrics"
	"flight_routes/internal/repository"
	"flight_routes/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	// ---------- db ----------
	pool, err := repository.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	// ---------- repositories ----------
	flightRepo := repository.NewFlightRepository()
	outboxRepo := repository.NewOutboxRepository(pool, cfg.OutboxMaxRetries)
	store := repository.NewFlightStore(pool, flightRepo, outboxRepo)

	metrics.StartDBCollectors(ctx, store, 15*time.Second, logger)

	// ---------- redis ----------
	var routeCache service.RouteCache
	if cfg.CacheEnabled() {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rc.Close()

		cache.StartRedisSizeCollector(ctx, rc.RawClient(), 30*time.Second, logger)
		routeCache = cache.NewRouteCache(rc, cfg.CacheTTL)
		logger.Info("route cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
	}

	// ---------- kafka ----------
	eventsTopic := ""
	if cfg.KafkaEnabled {
		eventsTopic = cfg.KafkaTopic

		producer, err := kafka.NewSyncProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer producer.Close()

		sender := service.NewOutboxSender(
			outboxRepo,
			producer,
			cfg.OutboxPollInterval,
			cfg.OutboxBatchSize,
			cfg.OutboxRetentionDays,
			cfg.OutboxMaxRetries,
			logger.With(slog.String("component", "outbox")),
		)
		sender.Start(ctx)

		// other replicas share the Redis cache; flight events tell this one to
		// drop routes computed from a stale flight set
		if routeCache != nil {
			consumer, err := kafka.NewConsumer(
				cfg.KafkaBrokers,
				cfg.KafkaGroupID,
				cfg.KafkaTopic,
				routeCache,
				logger.With(slog.String("component", "consumer")),
			)
			if err != nil {
				return err
			}
			defer consumer.Close()

			go func() {
				if err := consumer.Start(ctx); err != nil {
					logger.Error("kafka consumer stopped", slog.Any("err", err))
				}
			}()
		}
	}

	// ---------- service & handlers ----------
	svc := service.NewFlightService(store, routeCache, service.Options{
		EventsTopic:   eventsTopic,
		SearchTimeout: cfg.RouteSearchTimeout,
		Logger:        logger,
	})
	h := handlers.NewFlightHandler(svc, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ---------- start server ----------
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
