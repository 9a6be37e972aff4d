package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/jmail/domaincheck/internal/errors"
)

// Check results reported per dependency.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the aggregate /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live, ready and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is a dependency that can report its own health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a ping function such as a token store's Ping.
type CheckerFunc func(ctx context.Context) error

// CheckHealth implements HealthChecker.
func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// HealthManager runs the registered checkers behind each probe endpoint.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a manager reporting version on /health.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds or replaces the checker for name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			continue
		}
		if err := checkers[name].CheckHealth(ctx); err != nil {
			if ctx.Err() != nil {
				checks[name] = StatusTimeout
			} else {
				checks[name] = StatusUnhealthy
			}
			continue
		}
		checks[name] = StatusHealthy
	}
	return checks
}

func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		switch status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			degraded = true
		}
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// probe runs the checkers within timeout. It writes the 503 envelope and
// returns false when the aggregate status is unhealthy.
func (hm *HealthManager) probe(w http.ResponseWriter, r *http.Request, name string, timeout time.Duration) (string, map[string]string, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := hm.runHealthChecks(ctx)
	status := hm.determineOverallStatus(checks)
	if status == StatusUnhealthy {
		message := name + " probe failed"
		if name == "" {
			message = "aggregate health check failed"
		}
		envelope := errors.NewErrorEnvelope(apperrors.CodeServiceUnavailable, message)
		apperrors.RespondWithEnvelope(w, r, enrichHealthEnvelope(envelope, name, status, checks))
		return status, checks, false
	}
	return status, checks, true
}

// HealthHandler serves GET /health.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, checks, ok := hm.probe(w, r, "", 5*time.Second)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler serves GET /health/live.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, "live", 2*time.Second)
}

// ReadinessHandler serves GET /health/ready.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, "ready", 5*time.Second)
}

// StartupHandler serves GET /health/startup.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, "startup", 3*time.Second)
}

func (hm *HealthManager) serveProbe(w http.ResponseWriter, r *http.Request, name string, timeout time.Duration) {
	status, _, ok := hm.probe(w, r, name, timeout)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{"status": status}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	if probe != "" {
		details["probe"] = probe
	}
	envelope = envelope.WithDetails(details)

	var unhealthy []string
	for name, result := range checks {
		if result != StatusHealthy {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)

	contextData := map[string]interface{}{"status": status}
	if probe != "" {
		contextData["probe"] = probe
	}
	if len(unhealthy) > 0 {
		contextData["unhealthy_checks"] = unhealthy
	}
	if updated, err := envelope.WithContext(contextData); err == nil {
		envelope = updated
	}
	return envelope
}
