package api

import (
	"net/http"

	"github.com/nuestro-pulso/pulso-search/internal/api/respond"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
)

// ServiceHealth is satisfied by health.ServiceHealthChecker.
type ServiceHealth interface {
	IsHealthy() bool
	Components() map[string]string
}

// HealthHandler handles the service-wide health endpoint
type HealthHandler struct {
	svc     ServiceHealth
	version string
	clk     clock.Clock
}

func NewHealthHandler(svc ServiceHealth, version string, clk clock.Clock) *HealthHandler {
	return &HealthHandler{svc: svc, version: version, clk: clk}
}

// CheckHealth handles GET /health
// Always returns 200; body reports healthy/unhealthy.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	var components map[string]string
	if h.svc != nil {
		if h.svc.IsHealthy() {
			status = "healthy"
		}
		components = h.svc.Components()
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"components": components,
		"version":    h.version,
		"timestamp":  respond.Timestamp(h.clk.Now()),
	})
}
