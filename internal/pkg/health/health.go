package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/circuitbreaker"
	"github.com/piresc/trackwash/internal/pkg/database"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/nats"
)

// Dependency and aggregate statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds a single dependency probe
const DefaultCheckTimeout = 2 * time.Second

var errNATSDisconnected = errors.New("nats not connected")

// HealthChecker probes one dependency
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker
type CheckerFunc func(ctx context.Context) error

// CheckHealth calls f
func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// NewPostgresHealthChecker pings the pool. A nil client always passes.
func NewPostgresHealthChecker(client *database.PostgresClient) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if client == nil {
			return nil
		}
		return client.GetDB().PingContext(ctx)
	})
}

// NewRedisHealthChecker pings Redis. A nil client always passes.
func NewRedisHealthChecker(client *database.RedisClient) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if client == nil {
			return nil
		}
		return client.Ping(ctx)
	})
}

// NewNATSHealthChecker fails while the connection is down. A nil client
// always passes.
func NewNATSHealthChecker(client *nats.Client) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if client == nil || client.IsConnected() {
			return nil
		}
		return errNATSDisconnected
	})
}

// BreakerSource exposes a circuit breaker's state
type BreakerSource interface {
	Name() string
	State() circuitbreaker.State
}

// NewBreakerHealthChecker fails while the breaker is open. Half-open counts
// as passing since probes are already flowing.
func NewBreakerHealthChecker(b BreakerSource) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if b == nil {
			return nil
		}
		if s := b.State(); s == circuitbreaker.StateOpen {
			return fmt.Errorf("%s circuit breaker is %s", b.Name(), s)
		}
		return nil
	})
}

type registration struct {
	checker  HealthChecker
	optional bool
}

// HealthService aggregates dependency probes. Required dependencies make the
// service unhealthy when they fail; optional ones only degrade it.
type HealthService struct {
	mu           sync.RWMutex
	checks       map[string]registration
	checkTimeout time.Duration
	logger       *logger.ZapLogger
}

// NewHealthService creates a health service. zapLogger may be nil.
func NewHealthService(zapLogger *logger.ZapLogger) *HealthService {
	if zapLogger == nil {
		zapLogger = logger.NewNopLogger()
	}
	return &HealthService{
		checks:       make(map[string]registration),
		checkTimeout: DefaultCheckTimeout,
		logger:       zapLogger,
	}
}

// AddChecker registers a required dependency
func (h *HealthService) AddChecker(name string, checker HealthChecker) {
	h.add(name, registration{checker: checker})
}

// AddOptionalChecker registers a dependency whose failure degrades the
// service without taking it out of rotation
func (h *HealthService) AddOptionalChecker(name string, checker HealthChecker) {
	h.add(name, registration{checker: checker, optional: true})
}

// SetCheckTimeout overrides the per-dependency probe timeout
func (h *HealthService) SetCheckTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d > 0 {
		h.checkTimeout = d
	}
}

func (h *HealthService) add(name string, r registration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = r
}

// HealthResponse is the body of /health/detailed
type HealthResponse struct {
	Status       string                    `json:"status"`
	Timestamp    time.Time                 `json:"timestamp"`
	Service      string                    `json:"service"`
	Version      string                    `json:"version,omitempty"`
	GoVersion    string                    `json:"goVersion,omitempty"`
	Hostname     string                    `json:"hostname,omitempty"`
	Dependencies map[string]DependencyInfo `json:"dependencies"`
}

// DependencyInfo is one probe result
type DependencyInfo struct {
	Status    string `json:"status"`
	Optional  bool   `json:"optional,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// CheckAllHealth probes every dependency concurrently, each bounded by the
// check timeout as well as ctx.
func (h *HealthService) CheckAllHealth(ctx context.Context) HealthResponse {
	h.mu.RLock()
	checks := make(map[string]registration, len(h.checks))
	for name, r := range h.checks {
		checks[name] = r
	}
	timeout := h.checkTimeout
	h.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]DependencyInfo, len(checks))
	)
	for name, r := range checks {
		wg.Add(1)
		go func(name string, r registration) {
			defer wg.Done()
			info := h.probe(ctx, name, r, timeout)
			resMu.Lock()
			results[name] = info
			resMu.Unlock()
		}(name, r)
	}
	wg.Wait()

	return HealthResponse{
		Status:       aggregate(results),
		Timestamp:    time.Now(),
		Dependencies: results,
	}
}

func (h *HealthService) probe(ctx context.Context, name string, r registration, timeout time.Duration) DependencyInfo {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := r.checker.CheckHealth(ctx)
	info := DependencyInfo{
		Status:    StatusHealthy,
		Optional:  r.optional,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err == nil {
		return info
	}

	info.Error = err.Error()
	if r.optional {
		info.Status = StatusDegraded
		h.logger.Warn("Optional dependency degraded",
			logger.String("dependency", name),
			logger.Err(err))
	} else {
		info.Status = StatusUnhealthy
		h.logger.Error("Health check failed",
			logger.String("dependency", name),
			logger.Err(err))
	}
	return info
}

func aggregate(results map[string]DependencyInfo) string {
	status := StatusHealthy
	for _, info := range results {
		switch info.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// failing lists dependencies that keep the service out of rotation
func failing(resp HealthResponse) []string {
	var names []string
	for name, info := range resp.Dependencies {
		if info.Status == StatusUnhealthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RegisterEnhancedHealthEndpoints mounts /health, /health/detailed,
// /health/ready and /health/live.
func RegisterEnhancedHealthEndpoints(e *echo.Echo, serviceName, version string, healthService *HealthService) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	g := e.Group("/health")

	g.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now(),
		})
	})

	g.GET("/detailed", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		resp := healthService.CheckAllHealth(ctx)
		resp.Service = serviceName
		resp.Version = version
		resp.GoVersion = runtime.Version()
		resp.Hostname = hostname

		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, resp)
	})

	// degraded still accepts traffic
	g.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		resp := healthService.CheckAllHealth(ctx)
		resp.Service = serviceName
		if resp.Status == StatusUnhealthy {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "not_ready",
				"service": serviceName,
				"failing": failing(resp),
				"details": resp.Dependencies,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ready",
			"service": serviceName,
			"health":  resp.Status,
		})
	})

	g.GET("/live", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "alive",
			"service": serviceName,
		})
	})
}
