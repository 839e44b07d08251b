// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/matchengine/pkg/logger"
	"github.com/okian/matchengine/pkg/metrics"
)

// ReadinessCheck reports whether the backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler serves liveness, readiness and Prometheus metrics.
type HealthHandler struct {
	metrics http.Handler
	ready   ReadinessCheck
	logger  logger.Logger
}

// NewHealthHandler creates a new health handler. A nil check is always ready.
func NewHealthHandler(ready ReadinessCheck, l logger.Logger) *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		ready:   ready,
		logger:  l,
	}
}

// HandleHealth handles GET /healthz requests with the custom metrics registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleReady handles GET /readyz: 200 when the backends answer, 503 otherwise.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "readiness check failed", logger.Error(err))
			metrics.RecordErrorByComponent("api", "not_ready")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
