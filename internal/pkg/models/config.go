package models

import "time"

// Config represents application configuration
type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	JWT          JWTConfig
	APIKey       APIKeyConfig
	MPesa        MPesaConfig
	Payment      PaymentConfig
	Notification NotificationConfig
	Reconcile    ReconcileConfig
	Services     ServicesConfig
	NewRelic     NewRelicConfig
	Logger       LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int

	DialTimeout    time.Duration
	ConnectRetries int // extra ping attempts at startup
}

// NATSConfig contains NATS connection configuration
type NATSConfig struct {
	URL string
}

// JWTConfig contains JWT authentication configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// APIKeyConfig holds the keys accepted on /internal routes
type APIKeyConfig struct {
	BookingService      string
	NotificationService string
	ReconcileService    string
	Admin               string
}

// MPesaConfig contains Daraja (M-Pesa) credentials and endpoints
type MPesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Environment    string // sandbox | production, empty means derive from key
	BaseURL        string // overrides Environment when set
	TimeoutSeconds int
}

// PaymentConfig contains status poller and payment flow settings
type PaymentConfig struct {
	PollAttempts   int
	PollInterval   time.Duration
	Currency       string
	CryptoCurrency string
	InitiateLimit  int
	InitiateWindow time.Duration
}

// NotificationConfig contains delivery channel settings
type NotificationConfig struct {
	ResendAPIKey     string
	ResendBaseURL    string
	FromEmail        string
	WhatsAppBaseURL  string
	WhatsAppToken    string
	WhatsAppSenderID string
	AppURL           string
	MaxRetries       int
}

// ReconcileConfig drives the stale-payment sweeper
type ReconcileConfig struct {
	StaleAfter time.Duration
	Interval   time.Duration
	BatchSize  int
}

// ServicesConfig contains URLs for other services
type ServicesConfig struct {
	BookingServiceURL string
}

// NewRelicConfig contains New Relic APM configuration
type NewRelicConfig struct {
	LicenseKey   string
	AppName      string
	Enabled      bool
	LogsEnabled  bool
	LogsEndpoint string
	LogsAPIKey   string
	ForwardLogs  bool
}

// LoggerConfig contains zap logger configuration
type LoggerConfig struct {
	Level      string
	FilePath   string
	MaxSize    int64
	MaxAge     int
	MaxBackups int
	Compress   bool
	Type       string
}
