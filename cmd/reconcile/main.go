package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/config"
	"github.com/piresc/trackwash/internal/pkg/health"
	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/pkg/server"
	"github.com/piresc/trackwash/services/reconcile"
)

func main() {
	appName := "reconcile-service"
	configPath := "config/reconcile.env"
	configs := config.InitConfig(configPath)
	if err := config.Validate(configs, config.ReconcileService); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	nrApp := nrpkg.InitNewRelic(configs)

	zapLogger, err := logger.InitZapLoggerFromConfig(configs, nrApp)
	if err != nil {
		log.Fatalf("Failed to create Zap logger: %v", err)
	}
	defer zapLogger.Close()
	logger.SetGlobalLogger(zapLogger)

	logger.Info("Starting application",
		logger.String("app", appName),
		logger.String("version", configs.App.Version),
		logger.String("booking_service", configs.Services.BookingServiceURL),
	)

	m := metrics.NewMetrics("trackwash", nil)

	bookingClient := pkghttp.NewAPIKeyClient(&configs.APIKey, appName, configs.Services.BookingServiceURL)
	sweeper := reconcile.NewSweeper(bookingClient, configs.Reconcile, nrApp, m)

	// health and metrics only
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.PanicRecoveryWithZapMiddleware(zapLogger))
	e.Use(middleware.RequestIDMiddleware())

	healthService := health.NewHealthService(zapLogger)
	// sweeps fail until the booking service answers, but this process stays up
	healthService.AddOptionalChecker("booking-service", health.CheckerFunc(func(ctx context.Context) error {
		return bookingClient.GetJSON(ctx, "/health", nil)
	}))
	health.RegisterEnhancedHealthEndpoints(e, appName, configs.App.Version, healthService)
	m.Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepDone := make(chan error, 1)
	go func() {
		sweepDone <- sweeper.Run(ctx)
	}()

	srv := server.NewGracefulServer(e, zapLogger, configs.Server.Port, time.Duration(configs.Server.ShutdownTimeout)*time.Second)
	srv.OnShutdown(func(context.Context) error {
		if nrApp != nil {
			nrApp.Shutdown(10 * time.Second)
		}
		return nil
	})
	srv.OnShutdown(func(ctx context.Context) error {
		stop()
		select {
		case err := <-sweepDone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := srv.Run(ctx); err != nil {
		zapLogger.Fatal("Server stopped with error", logger.Err(err))
	}
	_ = zapLogger.Sync()
}
