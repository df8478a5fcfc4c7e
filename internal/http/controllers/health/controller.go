// Package health contiene los controllers de health check.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/iridium/internal/cache"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/store"
)

// Controller expone liveness y readiness.
type Controller struct {
	store store.AdapterConnection
	cache cache.Client
}

// NewController crea el controller de health.
func NewController(conn store.AdapterConnection, cacheClient cache.Client) *Controller {
	return &Controller{store: conn, cache: cacheClient}
}

// Healthz maneja GET /healthz: liveness, siempre 200 si el proceso vive.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz: verifica store y cache con timeout corto.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok", "cache": "ok"}
	healthy := true

	if err := c.store.Ping(ctx); err != nil {
		logger.From(ctx).Warn("store ping failed", logger.Err(err))
		checks["store"] = "unreachable"
		healthy = false
	}
	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			// Cache caído degrada performance, no disponibilidad.
			checks["cache"] = "unreachable"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, checks)
}
