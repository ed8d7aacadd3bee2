package handler

import (
	"net/http"
	"time"
)

const (
	serviceName    = "Currency Exchange API"
	serviceVersion = "1.0.0"
)

// HealthHandler handles health-check and index endpoints.
type HealthHandler struct {
	nowF func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{nowF: func() time.Time { return time.Now().UTC() }}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: h.nowF(),
		Service:   serviceName,
		Version:   serviceVersion,
	})
}

func (h *HealthHandler) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       serviceName,
		"version":       serviceVersion,
		"documentation": "/api/health",
		"endpoints": map[string]string{
			"rates":      "/api/rates",
			"users":      "/api/users",
			"currencies": "/api/currencies",
			"exchange":   "/api/exchange",
			"watchlist":  "/api/watchlist",
		},
	})
}

// NotFound answers unknown routes in the same JSON shape as other errors.
func (h *HealthHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "endpoint "+r.Method+" "+r.URL.Path+" not found")
}
