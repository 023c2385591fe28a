package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: collector,
	})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	return collector
}

func TestRequestMetrics(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		collector := setupTelemetry(t)

		handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"monitors":[]}`))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/monitors", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0)
		assert.Greater(t, collector.CountMetricsByName("http_request_duration_ms"), 0)
		assert.Greater(t, collector.CountMetricsByName("http_response_size_bytes"), 0)
		assert.Equal(t, 0, collector.CountMetricsByName("http_errors_total"))
	})

	t.Run("upstream failure counts as server error", func(t *testing.T) {
		collector := setupTelemetry(t)

		handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/monitors/acme/check", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Greater(t, collector.CountMetricsByName("http_errors_total"), 0)
	})

	t.Run("telemetry disabled", func(t *testing.T) {
		original := observability.TelemetrySystem
		observability.TelemetrySystem = nil
		t.Cleanup(func() { observability.TelemetrySystem = original })

		handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestEndpointPattern(t *testing.T) {
	t.Run("unrouted paths", func(t *testing.T) {
		tests := map[string]string{
			"/health":              "/health/*",
			"/health/ready":        "/health/*",
			"/monitors/acme":       "/monitors/*",
			"/monitors/acme/check": "/monitors/*",
			"/version":             "/version",
			"/metrics":             "/metrics",
			"/":                    "/",
			"/wp-login.php":        "/unknown",
		}
		for path, expected := range tests {
			t.Run(path, func(t *testing.T) {
				assert.Equal(t, expected, endpointPattern(httptest.NewRequest(http.MethodGet, path, nil)))
			})
		}
	})

	t.Run("chi route pattern hides monitor names", func(t *testing.T) {
		var got string
		r := chi.NewRouter()
		r.Post("/monitors/{name}/check", func(w http.ResponseWriter, req *http.Request) {
			got = endpointPattern(req)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/monitors/acme/check", nil))
		assert.Equal(t, "/monitors/{name}/check", got)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("inbound id reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/monitors", nil)
		req.Header.Set(RequestIDHeader, "cycle-42")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, "cycle-42", seen)
		assert.Equal(t, "cycle-42", rec.Header().Get(RequestIDHeader))
	})

	t.Run("generated when missing or unsafe", func(t *testing.T) {
		for _, inbound := range []string{"", "has space", strings.Repeat("x", maxRequestIDLength+1)} {
			req := httptest.NewRequest(http.MethodGet, "/monitors", nil)
			req.Header.Set(RequestIDHeader, inbound)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Len(t, seen, 36, "inbound %q", inbound)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
	})
}

func TestRecovery(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("store handle is nil")
	})))

	req := httptest.NewRequest(http.MethodGet, "/monitors", nil)
	req.Header.Set(RequestIDHeader, "panic-1")
	rec := httptest.NewRecorder()

	require.NotPanics(t, func() { handler.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "panic-1", body.Error.RequestID)
	assert.NotContains(t, rec.Body.String(), "goroutine")
	assert.Greater(t, collector.CountMetricsByName("panics_total"), 0)
}
