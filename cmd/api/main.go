package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/pawcare-booking-chat/internal/api/router"
	"github.com/wolfman30/pawcare-booking-chat/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pawcare-booking-chat/internal/config"
	httpmiddleware "github.com/wolfman30/pawcare-booking-chat/internal/http/middleware"
	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/internal/webchat"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

const sessionSweepInterval = time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting pawcare booking chat API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup := setupServer(ctx, cfg, logger)
	defer cleanup()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry with the booking collectors plus the
// Go runtime and process collectors.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

func redisHealthCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// setupServer wires every collaborator and returns the HTTP server plus a
// cleanup func. Background loops stop when ctx is done.
func setupServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*http.Server, func()) {
	metricsHandler, bookingMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	healthChecks := map[string]func(context.Context) error{}
	if redisClient != nil {
		healthChecks["redis"] = redisHealthCheck(redisClient)
	}

	sender := bootstrap.BuildWebhookClient(cfg, bookingMetrics, logger)
	factory := bootstrap.ConversationFactory(cfg, bootstrap.Deps{
		Sender:  sender,
		Store:   bootstrap.BuildTranscriptStore(redisClient, cfg),
		Metrics: bookingMetrics,
		Logger:  logger,
	})

	registry := webchat.NewRegistry(factory, cfg.SessionIdleTTL,
		webchat.WithRegistryMetrics(bookingMetrics),
		webchat.WithRegistryLogger(logger),
	)
	go registry.Run(ctx, sessionSweepInterval)

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(registry, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		HealthChecks:       healthChecks,
	})

	// Webhook calls have no deadline of their own and the chat socket is
	// long-lived, so writes are left unbounded.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	cleanup := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	return srv, cleanup
}
