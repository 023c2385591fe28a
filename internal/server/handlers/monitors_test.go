package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
	"github.com/namelens/domainwatch/internal/core/store"
	apperrors "github.com/namelens/domainwatch/internal/errors"
)

type fakeRunner struct {
	result    *engine.Result
	err       error
	statusErr error
	working   bool
	dryRuns   int
	runs      int
}

func (f *fakeRunner) RunOnce(_ context.Context, cfg core.CheckConfiguration) (*engine.Result, error) {
	f.runs++
	return f.result, f.err
}

func (f *fakeRunner) DryRun(_ context.Context, cfg core.CheckConfiguration) (*engine.Result, error) {
	f.dryRuns++
	return f.result, f.err
}

func (f *fakeRunner) Status(_ context.Context, cfg core.CheckConfiguration) (core.MonitorStatus, error) {
	return core.MonitorStatus{Config: cfg, Working: f.working}, f.statusErr
}

func testMonitors() []core.CheckConfiguration {
	return []core.CheckConfiguration{
		{Name: "example", Domain: "example.com", CheckType: core.CheckTypeRegistered, TimeoutSeconds: 5, ChangesOnly: true, ExpectedReceivePeriodDays: 1, Transport: core.TransportWhois},
		{Name: "spare", Domain: "spare.dev", CheckType: core.CheckTypeAvailable, TimeoutSeconds: 5, ChangesOnly: true, ExpectedReceivePeriodDays: 1, Transport: core.TransportRDAP},
	}
}

func serveMonitors(t *testing.T, h *MonitorHandler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	h.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestMonitorHandlerList(t *testing.T) {
	h := &MonitorHandler{Monitors: testMonitors(), Runner: &fakeRunner{working: true}}

	rec := serveMonitors(t, h, http.MethodGet, "/monitors")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MonitorList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Monitors, 2)
	assert.Equal(t, "example", body.Monitors[0].Config.Name)
	assert.True(t, body.Monitors[1].Working)
}

func TestMonitorHandlerListStoreFailure(t *testing.T) {
	h := &MonitorHandler{Monitors: testMonitors(), Runner: &fakeRunner{statusErr: errors.New("database is locked")}}

	rec := serveMonitors(t, h, http.MethodGet, "/monitors")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DATABASE_ERROR", decodeError(t, rec).Error.Code)
}

func TestMonitorHandlerGet(t *testing.T) {
	h := &MonitorHandler{Monitors: testMonitors(), Runner: &fakeRunner{}}

	t.Run("Found", func(t *testing.T) {
		rec := serveMonitors(t, h, http.MethodGet, "/monitors/spare")
		require.Equal(t, http.StatusOK, rec.Code)

		var status core.MonitorStatus
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
		assert.Equal(t, "spare.dev", status.Config.Domain)
		assert.Equal(t, core.CheckTypeAvailable, status.Config.CheckType)
	})

	t.Run("Missing", func(t *testing.T) {
		rec := serveMonitors(t, h, http.MethodGet, "/monitors/nope")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
	})
}

func TestMonitorHandlerCheck(t *testing.T) {
	event := &core.CheckEvent{ID: "evt-1", Monitor: "example", Domain: "example.com", CheckType: core.CheckTypeRegistered, Value: true, CreatedAt: time.Now().UTC()}

	t.Run("RunsCycle", func(t *testing.T) {
		runner := &fakeRunner{result: &engine.Result{Monitor: "example", Event: event, Changed: true}}
		h := &MonitorHandler{Monitors: testMonitors(), Runner: runner}

		rec := serveMonitors(t, h, http.MethodPost, "/monitors/example/check")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, runner.runs)
		assert.Zero(t, runner.dryRuns)

		var result engine.Result
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
		require.NotNil(t, result.Event)
		assert.True(t, result.Event.Value)
		assert.True(t, result.Changed)
	})

	t.Run("DryRun", func(t *testing.T) {
		runner := &fakeRunner{result: &engine.Result{Monitor: "example", DryRun: true}}
		h := &MonitorHandler{Monitors: testMonitors(), Runner: runner}

		rec := serveMonitors(t, h, http.MethodPost, "/monitors/example/check?dry_run=true")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, runner.dryRuns)
		assert.Zero(t, runner.runs)
	})

	t.Run("InvalidDryRunFlag", func(t *testing.T) {
		h := &MonitorHandler{Monitors: testMonitors(), Runner: &fakeRunner{}}

		rec := serveMonitors(t, h, http.MethodPost, "/monitors/example/check?dry_run=maybe")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Timeout", func(t *testing.T) {
		runner := &fakeRunner{err: core.NewTransportError(core.TransportWhois, "example.com", "", context.DeadlineExceeded)}
		h := &MonitorHandler{Monitors: testMonitors(), Runner: runner}

		rec := serveMonitors(t, h, http.MethodPost, "/monitors/example/check")
		require.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, "TIMEOUT", decodeError(t, rec).Error.Code)
	})

	t.Run("TransportFailure", func(t *testing.T) {
		runner := &fakeRunner{err: core.NewTransportError(core.TransportRDAP, "example.com", "", errors.New("rdap server error (503)"))}
		h := &MonitorHandler{Monitors: testMonitors(), Runner: runner}

		rec := serveMonitors(t, h, http.MethodPost, "/monitors/example/check")
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestMonitorHandlerEvents(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.AppendEvent(context.Background(), &core.CheckEvent{
		ID: "evt-1", Monitor: "example", Domain: "example.com", CheckType: core.CheckTypeRegistered, Value: true, CreatedAt: time.Now().UTC(),
	}))

	h := &MonitorHandler{Monitors: testMonitors(), Runner: &fakeRunner{}, Events: mem}

	rec := serveMonitors(t, h, http.MethodGet, "/monitors/example/events?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body EventList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "evt-1", body.Events[0].ID)

	rec = serveMonitors(t, h, http.MethodGet, "/monitors/spare/events")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Events)

	rec = serveMonitors(t, h, http.MethodGet, "/monitors/example/events?limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	noHistory := &MonitorHandler{Monitors: testMonitors(), Runner: &fakeRunner{}}
	rec = serveMonitors(t, noHistory, http.MethodGet, "/monitors/example/events")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMonitorHealthChecker(t *testing.T) {
	cfg := testMonitors()[0]

	require.NoError(t, MonitorHealthChecker{Runner: &fakeRunner{working: true}, Config: cfg}.CheckHealth(context.Background()))
	require.ErrorIs(t, MonitorHealthChecker{Runner: &fakeRunner{}, Config: cfg}.CheckHealth(context.Background()), ErrDegraded)
	require.Error(t, MonitorHealthChecker{Runner: &fakeRunner{statusErr: errors.New("down")}, Config: cfg}.CheckHealth(context.Background()))
}
