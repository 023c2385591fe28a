package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/core"
)

func TestFromCheckError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		code string
	}{
		{
			name: "timeout",
			err:  core.NewTransportError(core.TransportWhois, "example.com", "whois.verisign-grs.com", context.DeadlineExceeded),
			code: "TIMEOUT",
		},
		{
			name: "transport failure",
			err:  fmt.Errorf("check example: %w", core.NewTransportError(core.TransportRDAP, "example.com", "", stderrors.New("connection refused"))),
			code: "EXTERNAL_SERVICE_ERROR",
		},
		{
			name: "invalid type",
			err:  &core.InvalidTypeError{Type: "expired"},
			code: "VALIDATION_FAILED",
		},
		{
			name: "configuration",
			err:  &core.ConfigurationError{Monitor: "example", Problems: []string{"domain is required"}},
			code: "VALIDATION_FAILED",
		},
		{
			name: "other",
			err:  stderrors.New("disk full"),
			code: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := FromCheckError(ctx, tt.err)
			require.NotNil(t, envelope)
			assert.Equal(t, tt.code, envelope.Code)
			assert.Equal(t, tt.err.Error(), envelope.Context["wrapped_error"])
			assert.NotEmpty(t, envelope.CorrelationID)
		})
	}

	assert.Nil(t, FromCheckError(ctx, nil))
}

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatusFromCode("TIMEOUT"))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromCode("EXTERNAL_SERVICE_ERROR"))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromCode("VALIDATION_FAILED"))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromCode("NOT_FOUND"))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode("SERVICE_UNAVAILABLE"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("DATABASE_ERROR"))
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/monitors/missing", nil)

	RespondWithEnvelope(rec, req, NewNotFoundError("monitor not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
	assert.Contains(t, rec.Body.String(), "fallback-")
}

func TestEnsureEnvelope(t *testing.T) {
	envelope := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", envelope.Code)
	assert.Equal(t, "boom", envelope.Context["wrapped_error"])

	assert.Equal(t, "INTERNAL_ERROR", EnsureEnvelope(nil).Code)
}

func TestFromCheckErrorCarriesServer(t *testing.T) {
	err := core.NewTransportError(core.TransportWhois, "example.com", "whois.nic.io", stderrors.New("connection reset by peer"))

	envelope := FromCheckError(context.Background(), err)
	require.NotNil(t, envelope)
	assert.Equal(t, CodeExternalService, envelope.Code)
	assert.Equal(t, "whois.nic.io", envelope.Context["server"])
	assert.Equal(t, envelope.CorrelationID, envelope.TraceID)
}

func TestCommandErrorHelpers(t *testing.T) {
	ctx := context.Background()
	cause := stderrors.New("listen tcp 127.0.0.1:8080: bind: address already in use")

	internal := WrapInternal(ctx, cause, "server error")
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, cause.Error(), internal.Context["wrapped_error"])
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode(internal.Code))

	invalid := WrapValidationError(ctx, cause, "config reload failed")
	assert.Equal(t, CodeValidationFailed, invalid.Code)
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromCode(invalid.Code))

	bare := NewInternalError("telemetry system not initialized")
	assert.Equal(t, CodeInternal, bare.Code)
	assert.Equal(t, "telemetry system not initialized", bare.Message)
}
