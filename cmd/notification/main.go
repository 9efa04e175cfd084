package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/config"
	"github.com/piresc/trackwash/internal/pkg/database"
	"github.com/piresc/trackwash/internal/pkg/health"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	"github.com/piresc/trackwash/internal/pkg/nats"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/pkg/server"
	"github.com/piresc/trackwash/services/notification"
	notificationGateway "github.com/piresc/trackwash/services/notification/gateway"
	notificationHandler "github.com/piresc/trackwash/services/notification/handler/nats"
	notificationRepository "github.com/piresc/trackwash/services/notification/repository"
	notificationUsecase "github.com/piresc/trackwash/services/notification/usecase"
)

func main() {
	appName := "notification-service"
	configPath := "config/notification.env"
	configs := config.InitConfig(configPath)
	if err := config.Validate(configs, config.NotificationService); err != nil {
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
		logger.String("environment", configs.App.Environment),
	)

	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}

	natsClient, err := nats.NewClient(configs.NATS.URL, appName)
	if err != nil {
		zapLogger.Fatal("Failed to connect to NATS", logger.Err(err))
	}

	m := metrics.NewMetrics("trackwash", nil)

	var senders []notification.SenderGW
	if configs.Notification.ResendAPIKey != "" {
		senders = append(senders, notificationGateway.NewResendGW(configs.Notification, m))
	} else {
		logger.Warn("RESEND_API_KEY not set, email notifications disabled")
	}
	if configs.Notification.WhatsAppToken != "" && configs.Notification.WhatsAppSenderID != "" {
		senders = append(senders, notificationGateway.NewWhatsAppGW(configs.Notification, m))
	} else {
		logger.Warn("WhatsApp credentials not set, WhatsApp notifications disabled")
	}

	notificationRepo := notificationRepository.NewNotificationRepository(postgresClient.GetDB())
	notificationUC, err := notificationUsecase.NewNotificationUC(configs, notificationRepo, senders, m)
	if err != nil {
		zapLogger.Fatal("Failed to initialize notification use case", logger.Err(err))
	}

	natsHandler := notificationHandler.NewNotificationHandler(notificationUC, natsClient)
	if err := natsHandler.InitNATSConsumers(); err != nil {
		zapLogger.Fatal("Failed to initialize NATS consumers", logger.Err(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.PanicRecoveryWithZapMiddleware(zapLogger))
	e.Use(middleware.RequestIDMiddleware())

	healthService := health.NewHealthService(zapLogger)
	healthService.AddChecker("postgres", health.NewPostgresHealthChecker(postgresClient))
	healthService.AddChecker("nats", health.NewNATSHealthChecker(natsClient))
	health.RegisterEnhancedHealthEndpoints(e, appName, configs.App.Version, healthService)
	m.Register(e)

	srv := server.NewGracefulServer(e, zapLogger, configs.Server.Port, time.Duration(configs.Server.ShutdownTimeout)*time.Second)
	srv.OnShutdown(func(context.Context) error {
		if nrApp != nil {
			nrApp.Shutdown(10 * time.Second)
		}
		return nil
	})
	srv.OnShutdown(func(context.Context) error {
		return postgresClient.Close()
	})
	srv.OnShutdown(func(context.Context) error {
		natsClient.Close()
		return nil
	})
	// consumers stop before the connection drains
	srv.OnShutdown(func(context.Context) error {
		natsHandler.Close()
		return nil
	})

	if err := srv.Start(); err != nil {
		zapLogger.Fatal("Server stopped with error", logger.Err(err))
	}
	_ = zapLogger.Sync()
}
