package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auto-atelier/internal/catalog"
	"auto-atelier/internal/config"
	"auto-atelier/internal/database"
	"auto-atelier/internal/events"
	"auto-atelier/internal/handler"
	"auto-atelier/internal/lock"
	"auto-atelier/internal/metrics"
	"auto-atelier/internal/payment"
	"auto-atelier/internal/repository"
	"auto-atelier/internal/router"
	"auto-atelier/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting auto-atelier API server")

	rules, err := cfg.Booking.Rules()
	if err != nil {
		return err
	}

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	appointmentRepo := repository.NewAppointmentRepository(pool, logger)

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize refund lock: %w", err)
	}
	defer closeLocker()

	publisher := events.NewNopPublisher()
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing domain events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	var gateway payment.Gateway
	if cfg.Payment.BaseURL != "" {
		gateway = payment.NewHTTPGateway(payment.Config{
			BaseURL:   cfg.Payment.BaseURL,
			SecretKey: cfg.Payment.SecretKey,
			Timeout:   cfg.Payment.Timeout(),
		}, nil, logger)
	} else {
		logger.Warn().Msg("payment gateway not configured, refunds will fail")
	}

	m := metrics.New()

	// Initialize services
	orderService := service.NewOrderService(orderRepo, cat, rules, publisher, m, logger)
	bookingService := service.NewBookingService(orderRepo, appointmentRepo, gateway, locker, rules, publisher, m, logger)

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)
	appointmentHandler := handler.NewAppointmentHandler(bookingService, logger)

	// Initialize router
	mux := router.New(orderHandler, appointmentHandler, m, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.Payment.Timeout(),
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadCatalog reads the option catalog, from S3 with a local fallback when S3 is enabled.
func loadCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (catalog.Catalog, error) {
	fileLoader := catalog.NewFileLoader(logger)

	var s3Loader catalog.Loader
	if cfg.S3.Enabled {
		l, err := catalog.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for catalog files (S3 disabled)")
	}

	loader := catalog.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)
	return catalog.Load(ctx, cfg.Catalog.Files, loader, logger)
}

// newLocker returns the refund locker and a function that releases its resources.
func newLocker(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (lock.Locker, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("using in-process refund lock (redis disabled)")
		return lock.NewLocalLocker(cfg.LockTTL()), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	return lock.NewRedisLocker(client, "atelier:lock:", cfg.LockTTL(), logger), closeFn, nil
}
