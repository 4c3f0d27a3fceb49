package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/config"
	"github.com/Dan9191/gmah-treasury/internal/handler"
	"github.com/Dan9191/gmah-treasury/internal/integrations/cbr"
	"github.com/Dan9191/gmah-treasury/internal/middleware"
	"github.com/Dan9191/gmah-treasury/internal/repository"
	"github.com/Dan9191/gmah-treasury/internal/service"
	"github.com/Dan9191/gmah-treasury/internal/treasury"
	"github.com/Dan9191/gmah-treasury/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const scheduledPeriodDays = 30

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	repo := repository.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to apply schema: %v", err)
	}

	// Flow sources
	readers := repo.FlowReaders()
	if cfg.ReserveYieldEnabled {
		readers = append(readers, treasury.NewReserveYield(cbr.NewCBRClient(cfg, logger), cfg.ReserveYieldSpread))
		logger.Info("Reserve yield projection enabled")
	}

	var notifier service.AlertNotifier
	if cfg.MailEnabled() {
		notifier = email.NewSender(cfg, logger)
	}

	// Initialize layers
	svc := service.NewService(repo, readers, notifier, logger, cfg)
	h := handler.NewHandler(svc, logger)

	// Setup router
	r := mux.NewRouter()
	h.Routes(r, middleware.AuthMiddleware(cfg))

	// Nightly forecasts
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ForecastCron, func() {
		if err := svc.RunScheduled(ctx, scheduledPeriodDays); err != nil {
			logger.WithError(err).Error("Scheduled forecasts finished with errors")
			return
		}
		logger.Info("Scheduled forecasts completed")
	}); err != nil {
		logger.Fatalf("Invalid FORECAST_CRON %q: %v", cfg.ForecastCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
	<-drained
	logger.Info("Server stopped")
}
