package api

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking a dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Ping calls f.
func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports whether the service and its dependencies are up.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health returns 200 only if every dependency answers.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		response.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			response.Checks[name] = "error: " + err.Error()
			response.Status = "unavailable"
			continue
		}
		response.Checks[name] = "ok"
	}

	status := http.StatusOK
	if response.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
