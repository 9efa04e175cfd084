package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// InitConfig reads the process environment. Outside APP_ENV=local the env
// file is ignored and the orchestrator is expected to inject variables.
func InitConfig(configPath string) *models.Config {
	if GetEnv("APP_ENV", "local") == "local" {
		if err := godotenv.Load(configPath); err != nil {
			log.Printf("config: %s not loaded: %v", configPath, err)
		}
	}
	return loadConfigFromEnv()
}

func loadConfigFromEnv() *models.Config {
	configs := &models.Config{}

	// App config
	configs.App.Name = GetEnv("APP_NAME", "trackwash")
	configs.App.Environment = GetEnv("APP_ENV", "")
	configs.App.Debug = GetEnvAsBool("APP_DEBUG", true)
	configs.App.Version = GetEnv("APP_VERSION", "")

	// Server config
	configs.Server.Host = GetEnv("SERVER_HOST", "")
	configs.Server.Port = GetEnvAsInt("SERVER_PORT", 8080)
	configs.Server.ReadTimeout = GetEnvAsInt("SERVER_READ_TIMEOUT", 15)
	configs.Server.WriteTimeout = GetEnvAsInt("SERVER_WRITE_TIMEOUT", 90)
	configs.Server.ShutdownTimeout = GetEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30)

	// Database config
	configs.Database.Driver = GetEnv("DB_DRIVER", "pgx")
	configs.Database.Host = GetEnv("DB_HOST", "")
	configs.Database.Port = GetEnvAsInt("DB_PORT", 5432)
	configs.Database.Username = GetEnv("DB_USERNAME", "")
	configs.Database.Password = GetEnv("DB_PASSWORD", "")
	configs.Database.Database = GetEnv("DB_DATABASE", "")
	configs.Database.SSLMode = GetEnv("DB_SSL_MODE", "disable")
	configs.Database.MaxConns = GetEnvAsInt("DB_MAX_CONNS", 0)
	configs.Database.IdleConns = GetEnvAsInt("DB_IDLE_CONNS", 0)

	// Redis config
	configs.Redis.Host = GetEnv("REDIS_HOST", "")
	configs.Redis.Port = GetEnvAsInt("REDIS_PORT", 6379)
	configs.Redis.Password = GetEnv("REDIS_PASSWORD", "")
	configs.Redis.DB = GetEnvAsInt("REDIS_DB", 0)
	configs.Redis.PoolSize = GetEnvAsInt("REDIS_POOL_SIZE", 0)
	configs.Redis.DialTimeout = GetEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	configs.Redis.ConnectRetries = GetEnvAsInt("REDIS_CONNECT_RETRIES", 2)

	// NATS config
	configs.NATS.URL = GetEnv("NATS_URL", "")

	// JWT config
	configs.JWT.Secret = GetEnv("JWT_SECRET", "")
	configs.JWT.Expiration = GetEnvAsInt("JWT_EXPIRATION", 60)
	configs.JWT.Issuer = GetEnv("JWT_ISSUER", "")

	// API keys
	configs.APIKey.BookingService = GetEnv("BOOKING_SERVICE_API_KEY", "")
	configs.APIKey.NotificationService = GetEnv("NOTIFICATION_SERVICE_API_KEY", "")
	configs.APIKey.ReconcileService = GetEnv("RECONCILE_SERVICE_API_KEY", "")
	configs.APIKey.Admin = GetEnv("ADMIN_API_KEY", "")

	// M-Pesa config
	configs.MPesa.ConsumerKey = GetEnv("MPESA_CONSUMER_KEY", "")
	configs.MPesa.ConsumerSecret = GetEnv("MPESA_CONSUMER_SECRET", "")
	configs.MPesa.ShortCode = GetEnv("MPESA_SHORTCODE", "")
	configs.MPesa.Passkey = GetEnv("MPESA_PASSKEY", "")
	configs.MPesa.CallbackURL = GetEnv("MPESA_CALLBACK_URL", "")
	configs.MPesa.Environment = GetEnv("MPESA_ENVIRONMENT", "")
	configs.MPesa.BaseURL = GetEnv("MPESA_BASE_URL", "")
	configs.MPesa.TimeoutSeconds = GetEnvAsInt("MPESA_TIMEOUT_SECONDS", 30)

	// Payment / poller config
	configs.Payment.PollAttempts = GetEnvAsInt("PAYMENT_POLL_ATTEMPTS", 24)
	configs.Payment.PollInterval = GetEnvAsDuration("PAYMENT_POLL_INTERVAL", 2500*time.Millisecond)
	configs.Payment.Currency = GetEnv("PAYMENT_CURRENCY", "KES")
	configs.Payment.CryptoCurrency = GetEnv("PAYMENT_CRYPTO_CURRENCY", "USD")
	configs.Payment.InitiateLimit = GetEnvAsInt("PAYMENT_INITIATE_LIMIT", 5)
	configs.Payment.InitiateWindow = GetEnvAsDuration("PAYMENT_INITIATE_WINDOW", time.Minute)

	// Notification config
	configs.Notification.ResendAPIKey = GetEnv("RESEND_API_KEY", "")
	configs.Notification.ResendBaseURL = GetEnv("RESEND_BASE_URL", "https://api.resend.com")
	configs.Notification.FromEmail = GetEnv("NOTIFICATION_FROM_EMAIL", "TrackWash <noreply@trackwash.app>")
	configs.Notification.WhatsAppBaseURL = GetEnv("WHATSAPP_BASE_URL", "")
	configs.Notification.WhatsAppToken = GetEnv("WHATSAPP_TOKEN", "")
	configs.Notification.WhatsAppSenderID = GetEnv("WHATSAPP_SENDER_ID", "")
	configs.Notification.AppURL = GetEnv("APP_URL", "https://trackwash.app")
	configs.Notification.MaxRetries = GetEnvAsInt("NOTIFICATION_MAX_RETRIES", 3)

	// Reconcile sweeper config
	configs.Reconcile.StaleAfter = GetEnvAsDuration("RECONCILE_STALE_AFTER", 2*time.Minute)
	configs.Reconcile.Interval = GetEnvAsDuration("RECONCILE_INTERVAL", time.Minute)
	configs.Reconcile.BatchSize = GetEnvAsInt("RECONCILE_BATCH_SIZE", 50)

	// Services config
	configs.Services.BookingServiceURL = GetEnv("BOOKING_SERVICE_URL", "http://localhost:8080")

	// NewRelic config
	configs.NewRelic.LicenseKey = GetEnv("NEW_RELIC_LICENSE_KEY", "")
	configs.NewRelic.AppName = GetEnv("NEW_RELIC_APP_NAME", "")
	configs.NewRelic.Enabled = GetEnvAsBool("NEW_RELIC_ENABLED", false)
	configs.NewRelic.LogsEnabled = GetEnvAsBool("NEW_RELIC_LOGS_ENABLED", false)
	configs.NewRelic.LogsEndpoint = GetEnv("NEW_RELIC_LOGS_ENDPOINT", "")
	configs.NewRelic.LogsAPIKey = GetEnv("NEW_RELIC_LOGS_API_KEY", "")
	configs.NewRelic.ForwardLogs = GetEnvAsBool("NEW_RELIC_FORWARD_LOGS", false)

	// Logger config
	configs.Logger.Level = GetEnv("LOG_LEVEL", "info")
	configs.Logger.FilePath = GetEnv("LOG_FILE_PATH", "")
	configs.Logger.MaxSize = GetEnvAsInt64("LOG_MAX_SIZE", 100)
	configs.Logger.MaxAge = GetEnvAsInt("LOG_MAX_AGE", 7)
	configs.Logger.MaxBackups = GetEnvAsInt("LOG_MAX_BACKUPS", 3)
	configs.Logger.Compress = GetEnvAsBool("LOG_COMPRESS", true)
	configs.Logger.Type = GetEnv("LOG_TYPE", "console")

	return configs
}
