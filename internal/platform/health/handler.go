// Package health provides liveness, readiness, and status endpoints.
package health

import (
	"maps"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"contactsync/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc reports the health of a dependency: nil when healthy.
type CheckFunc func() error

// Handler serves the health endpoints and remembers the last sync cycle.
type Handler struct {
	startTime time.Time
	service   string
	now       func() time.Time

	mu        sync.RWMutex
	checks    map[string]CheckFunc
	lastCycle *CycleSummary
}

// CycleSummary is the last finished cycle as shown on /health.
type CycleSummary struct {
	CycleID    string    `json:"cycle_id"`
	Status     string    `json:"status"`
	FinishedAt time.Time `json:"finished_at"`
}

// New creates a health handler for the named service.
func New(service string) *Handler {
	return &Handler{
		startTime: time.Now(),
		service:   service,
		now:       time.Now,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named readiness check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RecordCycle stores the summary of the latest finished cycle.
func (h *Handler) RecordCycle(s CycleSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = &s
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always returns 200 while the process serves requests.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check and returns 503 if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	maps.Copy(checks, h.checks)
	h.mu.RUnlock()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := checks[name](); err != nil {
			response.Checks[name] = "down: " + err.Error()
			response.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "up"
	}

	httputil.WriteJSON(w, status, response)
}

// StatusResponse is the response for the general health status endpoint.
type StatusResponse struct {
	Status        string        `json:"status"`
	Service       string        `json:"service"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Timestamp     string        `json:"timestamp"`
	LastCycle     *CycleSummary `json:"last_cycle,omitempty"`
}

// HandleStatus returns version, uptime and the last cycle summary.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	last := h.lastCycle
	h.mu.RUnlock()

	now := h.now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Service:       h.service,
		Version:       Version,
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
		LastCycle:     last,
	})
}
