package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/piresc/trackwash/internal/pkg/circuitbreaker"
	"github.com/piresc/trackwash/internal/pkg/config"
	"github.com/piresc/trackwash/internal/pkg/database"
	"github.com/piresc/trackwash/internal/pkg/health"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	"github.com/piresc/trackwash/internal/pkg/nats"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/pkg/server"
	"github.com/piresc/trackwash/internal/pkg/websocket"
	bookingGateway "github.com/piresc/trackwash/services/booking/gateway"
	bookingHandler "github.com/piresc/trackwash/services/booking/handler"
	bookingNats "github.com/piresc/trackwash/services/booking/handler/nats"
	bookingRepository "github.com/piresc/trackwash/services/booking/repository"
	bookingUsecase "github.com/piresc/trackwash/services/booking/usecase"
	paymentGateway "github.com/piresc/trackwash/services/payment/gateway"
	paymentHandler "github.com/piresc/trackwash/services/payment/handler"
	"github.com/piresc/trackwash/services/payment/poller"
	paymentRepository "github.com/piresc/trackwash/services/payment/repository"
	paymentUsecase "github.com/piresc/trackwash/services/payment/usecase"
)

func main() {
	appName := "booking-service"
	configPath := "config/booking.env"
	configs := config.InitConfig(configPath)
	if err := config.Validate(configs, config.BookingService); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize New Relic and Zap logger
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

	// Redis holds the shared M-Pesa token and rate-limit windows
	redisClient, err := database.NewRedisClient(configs.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}

	natsClient, err := nats.NewClient(configs.NATS.URL, appName)
	if err != nil {
		zapLogger.Fatal("Failed to connect to NATS", logger.Err(err))
	}

	m := metrics.NewMetrics("trackwash", nil)

	// Booking state machine
	bookingRepo := bookingRepository.NewBookingRepository(configs, postgresClient.GetDB())
	bookingGW := bookingGateway.NewBookingGW(natsClient, m)
	bookingUC, err := bookingUsecase.NewBookingUC(configs, bookingRepo, bookingGW, m)
	if err != nil {
		zapLogger.Fatal("Failed to initialize booking use case", logger.Err(err))
	}

	// Payments drive the booking state machine in-process
	paymentRepo := paymentRepository.NewPaymentRepository(configs, postgresClient.GetDB())
	mpesaGW := paymentGateway.NewMpesaGW(configs.MPesa, redisClient.GetClient(), m)
	paymentEventGW := paymentGateway.NewPaymentEventGW(natsClient, m)
	paymentUC, err := paymentUsecase.NewPaymentUC(configs, paymentRepo, mpesaGW, paymentEventGW, bookingUC, m)
	if err != nil {
		zapLogger.Fatal("Failed to initialize payment use case", logger.Err(err))
	}
	statusPoller := poller.New(paymentUC, configs.Payment, m)

	// Live booking stream, fed from NATS on every replica
	hub := websocket.NewHub()
	liveFeed := bookingNats.NewLiveFeed(natsClient, hub)
	if err := liveFeed.Start(); err != nil {
		zapLogger.Fatal("Failed to start live booking feed", logger.Err(err))
	}

	e := echo.New()
	e.HideBanner = true

	// panic recovery first
	e.Use(middleware.PanicRecoveryWithZapMiddleware(zapLogger))
	if nrApp != nil {
		e.Use(nrecho.Middleware(nrApp))
	}
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.ZapEchoMiddleware(zapLogger))
	e.Use(m.EchoMiddleware())

	authMW := middleware.JWTAuthMiddleware(configs.JWT)
	apiKeyMW := middleware.NewAPIKeyMiddleware(&configs.APIKey)
	initiateLimit := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RedisClient: redisClient.GetClient(),
		Key:         "mpesa_initiate",
		Limit:       configs.Payment.InitiateLimit,
		Period:      configs.Payment.InitiateWindow,
	})

	healthService := health.NewHealthService(zapLogger)
	healthService.AddChecker("postgres", health.NewPostgresHealthChecker(postgresClient))
	healthService.AddChecker("redis", health.NewRedisHealthChecker(redisClient))
	healthService.AddChecker("nats", health.NewNATSHealthChecker(natsClient))
	// crypto payments keep working while Daraja is unreachable
	if b, ok := mpesaGW.(interface {
		Breaker() *circuitbreaker.CircuitBreaker
	}); ok {
		healthService.AddOptionalChecker("mpesa", health.NewBreakerHealthChecker(b.Breaker()))
	}
	health.RegisterEnhancedHealthEndpoints(e, appName, configs.App.Version, healthService)
	m.Register(e)

	bookingHandler.NewHandler(bookingUC, hub).RegisterRoutes(e, authMW, apiKeyMW)
	paymentHandler.NewHandler(paymentUC, bookingUC, statusPoller).RegisterRoutes(e, authMW, apiKeyMW, initiateLimit)

	srv := server.NewGracefulServer(e, zapLogger, configs.Server.Port, time.Duration(configs.Server.ShutdownTimeout)*time.Second)
	srv.OnShutdown(func(context.Context) error {
		if nrApp != nil {
			nrApp.Shutdown(10 * time.Second)
		}
		return nil
	})
	srv.OnShutdown(func(context.Context) error {
		natsClient.Close()
		return nil
	})
	srv.OnShutdown(func(context.Context) error {
		return redisClient.Close()
	})
	srv.OnShutdown(func(context.Context) error {
		return postgresClient.Close()
	})
	srv.OnShutdown(func(context.Context) error {
		liveFeed.Close()
		hub.Close()
		return nil
	})

	if err := srv.Start(); err != nil {
		zapLogger.Fatal("Server stopped with error", logger.Err(err))
	}
	_ = zapLogger.Sync()
}
