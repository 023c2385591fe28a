package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/sync/errgroup"

	"github.com/namelens/domainwatch/internal/metrics"
)

// ErrDegraded marks a check that is impaired without making the service
// unhealthy, such as a monitor that has gone quiet.
var ErrDegraded = stderrors.New("degraded")

// Check and aggregate states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the /health/{live,ready,startup} probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by anything /health reports on.
// Returning an error wrapping ErrDegraded reports degraded, not unhealthy.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type probe struct {
	name    string
	timeout time.Duration
	// runChecks is false for liveness: a serving process is alive.
	runChecks bool
}

var (
	aggregateProbe = probe{name: "aggregate", timeout: 5 * time.Second, runChecks: true}
	liveProbe      = probe{name: "live", timeout: 2 * time.Second}
	readyProbe     = probe{name: "ready", timeout: 5 * time.Second, runChecks: true}
	startupProbe   = probe{name: "startup", timeout: 3 * time.Second, runChecks: true}
)

// HealthManager holds the registered checkers.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds or replaces the checker reported under name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks runs every checker concurrently. A checker still running
// when ctx expires is reported as timeout.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]HealthChecker, len(names))
	for i, name := range names {
		checkers[i] = hm.checkers[name]
	}
	hm.mu.RUnlock()

	results := make([]string, len(names))
	var g errgroup.Group
	for i := range names {
		g.Go(func() error {
			done := make(chan error, 1)
			go func() { done <- checkers[i].CheckHealth(ctx) }()

			var err error
			select {
			case <-ctx.Done():
				err = ctx.Err()
			case err = <-done:
			}

			switch {
			case err != nil && ctx.Err() != nil:
				results[i] = StatusTimeout
			case err == nil:
				results[i] = StatusHealthy
			case stderrors.Is(err, ErrDegraded):
				results[i] = StatusDegraded
			default:
				results[i] = StatusUnhealthy
			}
			metrics.RecordHealthCheck(names[i], err == nil)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]string, len(names))
	for i, name := range names {
		checks[name] = results[i]
	}
	return checks
}

// determineOverallStatus is unhealthy if any check is, degraded if any check
// is degraded or timed out, and healthy otherwise.
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, result := range checks {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) serve(w http.ResponseWriter, r *http.Request, p probe) {
	var checks map[string]string
	status := StatusHealthy
	if p.runChecks {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()
		checks = hm.runHealthChecks(ctx)
		status = hm.determineOverallStatus(checks)
	}

	if status == StatusUnhealthy {
		respondWithError(w, r, unhealthyEnvelope(p.name, status, checks))
		return
	}

	var body any = ProbeResponse{Status: status, Timestamp: time.Now().UTC()}
	if p == aggregateProbe {
		body = HealthResponse{
			Status:    status,
			Version:   hm.version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, aggregateProbe)
}

func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, liveProbe)
}

func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, readyProbe)
}

func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, startupProbe)
}

func unhealthyEnvelope(probeName, status string, checks map[string]string) *errors.ErrorEnvelope {
	message := probeName + " probe failed"
	if probeName == aggregateProbe.name {
		message = "aggregate health check failed"
	}

	details := map[string]interface{}{"status": status, "probe": probeName}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message).WithDetails(details)

	contextData := map[string]interface{}{"status": status, "probe": probeName}
	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		contextData["unhealthy_checks"] = failing
	}
	envelope, _ = envelope.WithContext(contextData)
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager replaces the manager used by the package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func globalHandler(p probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm := globalHealthManager; hm != nil {
			hm.serve(w, r, p)
			return
		}
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized").
			WithDetails(map[string]interface{}{"status": "unknown", "probe": p.name})
		respondWithError(w, r, envelope)
	}
}

// Package-level handlers delegate to the manager set by InitHealthManager.
var (
	HealthHandler    = globalHandler(aggregateProbe)
	LivenessHandler  = globalHandler(liveProbe)
	ReadinessHandler = globalHandler(readyProbe)
	StartupHandler   = globalHandler(startupProbe)
)
