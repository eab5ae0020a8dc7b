package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports per-store health, keyed by store name.
type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

// HealthCheck answers 503 when Postgres is unreachable; other stores only
// degrade the report.
func HealthCheck(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		stores := map[string]string{}
		status := http.StatusOK
		for name, err := range p.Ping(ctx) {
			if err != nil {
				stores[name] = err.Error()
				if name == "postgres" {
					status = http.StatusServiceUnavailable
				}
				continue
			}
			stores[name] = "ok"
		}

		health := "healthy"
		if status != http.StatusOK {
			health = "unhealthy"
		}
		return c.JSON(status, echo.Map{
			"status":  health,
			"service": "nano-social",
			"stores":  stores,
		})
	}
}
