package metrics

import (
	"strconv"
	"time"

	"github.com/namelens/domainwatch/internal/observability"
)

// Monitor metrics following Prometheus conventions
var (
	// Cycle metrics
	ChecksTotal          = "domainwatch_checks_total"
	CheckDuration        = "domainwatch_check_duration_ms"
	EventsTotal          = "domainwatch_events_total"
	TransportErrorsTotal = "domainwatch_transport_errors_total"

	// Configured monitors
	MonitorsConfigured = "domainwatch_monitors_configured"

	// Health check metrics
	HealthCheckTotal = "domainwatch_health_check_total"

	// Server lifecycle metrics
	ServerStartTime = "domainwatch_server_start_time_seconds"
)

// RecordCheck records a completed or failed check cycle
func RecordCheck(monitor string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ChecksTotal,
			1,
			map[string]string{
				"monitor": monitor,
				"status":  status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			CheckDuration,
			duration,
			map[string]string{
				"monitor": monitor,
			},
		)
	}
}

// RecordEvent records an emitted event
func RecordEvent(monitor string, flag string, value bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			EventsTotal,
			1,
			map[string]string{
				"monitor": monitor,
				"flag":    flag,
				"value":   strconv.FormatBool(value),
			},
		)
	}
}

// RecordTransportError records a failed lookup; kind is "timeout" or "error"
func RecordTransportError(monitor string, kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			TransportErrorsTotal,
			1,
			map[string]string{
				"monitor": monitor,
				"kind":    kind,
			},
		)
	}
}

// SetMonitorsConfigured sets the number of active monitors
func SetMonitorsConfigured(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			MonitorsConfigured,
			float64(count),
			nil,
		)
	}
}

// RecordHealthCheck records a monitor liveness evaluation
func RecordHealthCheck(monitor string, healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"monitor": monitor,
				"status":  status,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
