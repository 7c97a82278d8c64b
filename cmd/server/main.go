package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"water-savings-platform/internal/config"
	"water-savings-platform/internal/handlers"
	"water-savings-platform/internal/repository"
	"water-savings-platform/internal/services"
	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("water-savings-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting water savings API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
	})

	metricsCollector := metrics.NewCollector("water_savings")

	db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Repositories
	cityRepo := repository.NewCityRepository(db, logger, metricsCollector)
	tariffRepo := repository.NewTariffRepository(db, logger, metricsCollector)
	leadRepo := repository.NewLeadRepository(db, logger, metricsCollector)
	webhookRepo := repository.NewWebhookRepository(db, logger, metricsCollector)

	// Services
	dispatcher := services.NewWebhookDispatcher(webhookRepo, nil, cfg.Webhook, logger, metricsCollector)
	catalogService := services.NewCatalogService(cityRepo, tariffRepo, logger, metricsCollector)
	simulationService := services.NewSimulationService(cityRepo, tariffRepo, logger, metricsCollector)
	leadService := services.NewLeadService(simulationService, leadRepo, dispatcher, logger, metricsCollector)
	exportService := services.NewExportService(leadRepo, logger, metricsCollector)
	statsService := services.NewStatisticsService(leadRepo, logger, metricsCollector)
	webhookService := services.NewWebhookService(webhookRepo, dispatcher, logger)

	// Handlers
	publicHandler := handlers.NewPublicHandler(simulationService, leadService, catalogService, db, logger, metricsCollector)
	adminHandler := handlers.NewAdminHandler(catalogService, leadService, exportService, statsService, webhookService, logger, metricsCollector)

	router := handlers.NewRouter(publicHandler, adminHandler, logger, metricsCollector)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	// Webhook deliveries outlive their request; let them finish before the pool closes.
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn(ctx, "[SHUTDOWN_WEBHOOKS] Gave up waiting for webhook deliveries", logging.Fields{
			"timeout": cfg.Server.ShutdownTimeout.String(),
		})
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
