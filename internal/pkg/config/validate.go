package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piresc/trackwash/internal/pkg/models"
)

// Requirement is a setting a process cannot start without
type Requirement struct {
	Env   string
	Value func(*models.Config) string
}

func need(env string, value func(*models.Config) string) Requirement {
	return Requirement{Env: env, Value: value}
}

var (
	reqDatabase = need("DB_HOST", func(c *models.Config) string { return c.Database.Host })
	reqNATS     = need("NATS_URL", func(c *models.Config) string { return c.NATS.URL })
)

// BookingService lists what booking-service needs. M-Pesa credentials are
// not among them: crypto checkout still works without Daraja.
var BookingService = []Requirement{
	reqDatabase,
	reqNATS,
	need("REDIS_HOST", func(c *models.Config) string { return c.Redis.Host }),
	need("JWT_SECRET", func(c *models.Config) string { return c.JWT.Secret }),
	need("RECONCILE_SERVICE_API_KEY", func(c *models.Config) string { return c.APIKey.ReconcileService }),
}

// NotificationService lists what notification-service needs
var NotificationService = []Requirement{reqDatabase, reqNATS}

// ReconcileService lists what the sweeper needs
var ReconcileService = []Requirement{
	need("BOOKING_SERVICE_URL", func(c *models.Config) string { return c.Services.BookingServiceURL }),
	need("RECONCILE_SERVICE_API_KEY", func(c *models.Config) string { return c.APIKey.ReconcileService }),
}

// Validate reports every missing requirement at once
func Validate(cfg *models.Config, reqs []Requirement) error {
	var missing []string
	for _, r := range reqs {
		if strings.TrimSpace(r.Value(cfg)) == "" {
			missing = append(missing, r.Env)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}
