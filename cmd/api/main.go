package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/appointment-scheduler/internal/api/router"
	"github.com/wolfman30/appointment-scheduler/internal/app/bootstrap"
	"github.com/wolfman30/appointment-scheduler/internal/availability"
	"github.com/wolfman30/appointment-scheduler/internal/bookings"
	"github.com/wolfman30/appointment-scheduler/internal/calendar"
	"github.com/wolfman30/appointment-scheduler/internal/catalog"
	"github.com/wolfman30/appointment-scheduler/internal/chat"
	appconfig "github.com/wolfman30/appointment-scheduler/internal/config"
	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/events"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting appointment-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	auditDB, err := bootstrap.BuildAuditDB(ctx, cfg.AuditDatabaseURL)
	if err != nil {
		return err
	}
	if auditDB != nil {
		defer func() { _ = auditDB.Close() }()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	stores := bootstrap.BuildStores(pool, redisClient, auditDB, cfg.ChatTranscriptLimit, logger)
	metricsHandler, schedMetrics := setupMetrics()

	handler, err := buildHandler(cfg, stores, schedMetrics, metricsHandler, logger)
	if err != nil {
		return err
	}

	deliverer := events.NewDeliverer(stores.Outbox, buildDeliveryHandler(ctx, cfg, stores, logger), logger).
		WithInterval(cfg.OutboxPollInterval).
		WithMetrics(schedMetrics)
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		deliverer.Start(ctx)
	}()

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: chat websockets stay open for the length of a session.
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			cancel()
			workers.Wait()
			return err
		}
	}

	logger.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	workers.Wait()

	// Anything committed after the last tick still goes out.
	deliverer.Drain(shutdownCtx)
	logger.Info("server stopped")
	return nil
}

func setupMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewSchedulingMetrics(reg)
}

// buildHandler wires the domain services over stores and returns the router.
func buildHandler(cfg *appconfig.Config, stores bootstrap.Stores, m *metrics.SchedulingMetrics, metricsHandler http.Handler, logger *logging.Logger) (http.Handler, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	gen, err := scheduling.NewGenerator(cfg.SlotWidthMinutes)
	if err != nil {
		return nil, fmt.Errorf("SLOT_WIDTH_MINUTES: %w", err)
	}

	bookingService := bookings.NewService(stores.Bookings, stores.Catalog, stores.Directory, stores.Hours, logger,
		bookings.WithEvents(stores.Outbox),
		bookings.WithAuditor(stores.Audit),
		bookings.WithMetrics(m),
		bookings.WithLocation(cfg.Location()),
	)
	availabilityService := availability.NewService(stores.Hours, stores.Bookings, stores.Directory, gen, m, logger)

	return router.New(&router.Config{
		Logger:              logger,
		BookingsHandler:     bookings.NewHandler(bookingService, logger),
		AvailabilityHandler: availability.NewHandler(availabilityService, logger),
		CalendarHandler:     calendar.NewHandler(stores.Hours, logger),
		CatalogHandler:      catalog.NewHandler(stores.Catalog, logger),
		DirectoryHandler:    directory.NewHandler(stores.Directory, logger),
		ChatHandler:         chat.NewHandler(bookingService, stores.Transcript, cfg.ChatTranscriptLimit, logger),
		MetricsHandler:      metricsHandler,
		JWTSecret:           cfg.JWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	}), nil
}

// buildDeliveryHandler needs AWS only for SES or the events queue.
func buildDeliveryHandler(ctx context.Context, cfg *appconfig.Config, stores bootstrap.Stores, logger *logging.Logger) events.DeliveryHandler {
	var awsCfg *aws.Config
	if cfg.EmailProvider == "ses" || cfg.BookingEventsQueueURL != "" {
		loaded, err := bootstrap.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("aws config unavailable; SES and SQS delivery disabled", "error", err)
		} else {
			awsCfg = &loaded
		}
	}

	var queue events.SQSAPI
	if awsCfg != nil && cfg.BookingEventsQueueURL != "" {
		queue = sqs.NewFromConfig(*awsCfg)
	}
	email := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	return bootstrap.BuildEventHandler(queue, cfg.BookingEventsQueueURL, email, stores.Directory, logger)
}
