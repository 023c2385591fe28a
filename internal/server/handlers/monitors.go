package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
	apperrors "github.com/namelens/domainwatch/internal/errors"
)

// MonitorRunner runs and inspects monitors.
type MonitorRunner interface {
	RunOnce(ctx context.Context, cfg core.CheckConfiguration) (*engine.Result, error)
	DryRun(ctx context.Context, cfg core.CheckConfiguration) (*engine.Result, error)
	Status(ctx context.Context, cfg core.CheckConfiguration) (core.MonitorStatus, error)
}

// EventLister lists recorded events.
type EventLister interface {
	ListEvents(ctx context.Context, monitor string, limit uint) ([]core.CheckEvent, error)
}

// MonitorHandler serves the /monitors API.
type MonitorHandler struct {
	Monitors []core.CheckConfiguration
	Runner   MonitorRunner
	Events   EventLister
}

// MonitorList is the body of GET /monitors.
type MonitorList struct {
	Monitors []core.MonitorStatus `json:"monitors"`
}

// EventList is the body of GET /monitors/{name}/events.
type EventList struct {
	Monitor string            `json:"monitor"`
	Events  []core.CheckEvent `json:"events"`
}

// Routes mounts the monitor endpoints on r.
func (h *MonitorHandler) Routes(r chi.Router) {
	r.Get("/monitors", h.List)
	r.Get("/monitors/{name}", h.Get)
	r.Post("/monitors/{name}/check", h.Check)
	r.Get("/monitors/{name}/events", h.ListEvents)
}

// List returns the status of every configured monitor.
func (h *MonitorHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses := make([]core.MonitorStatus, 0, len(h.Monitors))
	for _, cfg := range h.Monitors {
		status, err := h.Runner.Status(r.Context(), cfg)
		if err != nil {
			respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load monitor status"))
			return
		}
		statuses = append(statuses, status)
	}
	writeJSON(w, http.StatusOK, MonitorList{Monitors: statuses})
}

// Get returns the status of one monitor.
func (h *MonitorHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.find(w, r)
	if !ok {
		return
	}

	status, err := h.Runner.Status(r.Context(), cfg)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load monitor status"))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Check runs one cycle now. ?dry_run=true evaluates without persisting or
// emitting.
func (h *MonitorHandler) Check(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.find(w, r)
	if !ok {
		return
	}

	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("dry_run must be a boolean"))
			return
		}
		dryRun = parsed
	}

	run := h.Runner.RunOnce
	if dryRun {
		run = h.Runner.DryRun
	}

	result, err := run(r.Context(), cfg)
	if err != nil {
		respondWithError(w, r, apperrors.FromCheckError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListEvents returns recent events for one monitor, newest first.
func (h *MonitorHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.find(w, r)
	if !ok {
		return
	}
	if h.Events == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("event history is not available"))
		return
	}

	var limit uint
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("limit must be a non-negative integer"))
			return
		}
		limit = uint(parsed)
	}

	events, err := h.Events.ListEvents(r.Context(), cfg.Name, limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list events"))
		return
	}
	if events == nil {
		events = []core.CheckEvent{}
	}
	writeJSON(w, http.StatusOK, EventList{Monitor: cfg.Name, Events: events})
}

func (h *MonitorHandler) find(w http.ResponseWriter, r *http.Request) (core.CheckConfiguration, bool) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	for _, cfg := range h.Monitors {
		if cfg.Name == name {
			return cfg, true
		}
	}
	respondWithError(w, r, apperrors.NewNotFoundError("monitor "+strconv.Quote(name)+" is not configured"))
	return core.CheckConfiguration{}, false
}

// MonitorHealthChecker reports a monitor as degraded when it stops being
// working in the liveness sense.
type MonitorHealthChecker struct {
	Runner MonitorRunner
	Config core.CheckConfiguration
}

func (m MonitorHealthChecker) CheckHealth(ctx context.Context) error {
	status, err := m.Runner.Status(ctx, m.Config)
	if err != nil {
		return err
	}
	if !status.Working {
		return ErrDegraded
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
