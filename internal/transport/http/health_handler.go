package http

import (
	"net/http"
	"time"

	"github.com/geolink/edge/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler serves the liveness probe and the Prometheus scrape
// endpoint for the edge process.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputils.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}
