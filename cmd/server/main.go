package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/queue"
	"shareit/internal/repository"
	"shareit/internal/service"
	"shareit/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	logger := logging.Component(baseLogger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, cfg.Database, logging.Component(baseLogger, "database"))
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	cache := initCache(cfg, redisClient, logging.Component(baseLogger, "cache"))

	bus := events.NewEventBus()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Outbox.Enabled {
		publisher := queue.NewRabbitPublisher(cfg.RabbitMQ, logging.Component(baseLogger, "rabbitmq"))
		defer func() { _ = publisher.Close() }()

		outboxWorker := worker.NewOutboxWorker(db, publisher, worker.RetryPolicy{
			MaxRetries:   cfg.Outbox.MaxRetries,
			InitialDelay: cfg.Outbox.InitialDelay,
			MaxDelay:     cfg.Outbox.MaxDelay,
		}, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize, logging.Component(baseLogger, "outbox"))

		events.NewOutboxWriter(db, outboxWorker.Notify).Attach(bus)
		g.Go(func() error {
			outboxWorker.Start(gctx)
			return nil
		})
	}

	svc := wireServices(db, cache, bus, baseLogger)

	backup := database.NewBackupService(db, cfg.Backup, logging.Component(baseLogger, "backup"))
	g.Go(func() error {
		backup.Start(gctx)
		return nil
	})

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Monitoring.PrometheusPort, logger)
		})
	}

	if cfg.API.HTTP.Enabled {
		httpServer := api.NewHTTPServer(&cfg.API, svc, baseLogger)
		g.Go(httpServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.API.GRPC.Enabled {
		grpcServer, err := api.NewGRPCServer(&cfg.API, svc.Bookings, baseLogger)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("create grpc server: %w", err)
		}
		g.Go(grpcServer.Serve)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			grpcServer.Shutdown(shutdownCtx)
			return nil
		})
	}

	logger.Info().
		Bool("http", cfg.API.HTTP.Enabled).
		Int("http_port", cfg.API.HTTP.Port).
		Bool("grpc", cfg.API.GRPC.Enabled).
		Int("grpc_port", cfg.API.GRPC.Port).
		Str("driver", db.Driver()).
		Msg("shareit started")

	err = g.Wait()
	logger.Info().Msg("shareit stopped")
	return err
}

func wireServices(db *database.DB, cache domain.BookingCache, bus *events.EventBus, logger *zerolog.Logger) api.Services {
	users := service.NewUserService(db, logging.Component(logger, "users"))
	items := service.NewItemService(db, db, db, db, logging.Component(logger, "items"))
	bookings := service.NewBookingService(db, users, items, cache, bus, domain.SystemClock{}, logging.Component(logger, "bookings"))
	items.SetBookings(bookings)

	return api.Services{
		Bookings: bookings,
		Users:    users,
		Items:    items,
		Requests: service.NewRequestService(db, db, users, logging.Component(logger, "requests")),
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, booking cache stays in memory until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

// initCache prefers Redis behind a memory failover and uses memory alone without Redis.
func initCache(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.BookingCache {
	memory := repository.NewMemoryBookingCache(cfg.Cache.BookingTTL)
	if client == nil {
		return memory
	}
	primary := repository.NewRedisBookingCache(client, cfg.Cache.BookingTTL)
	return repository.NewFailoverBookingCache(primary, memory, logger)
}

func serveMetrics(ctx context.Context, port int, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
