package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"

	"github.com/namelens/domainwatch/internal/core"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"configuration", fmt.Errorf("monitors[0]: %w", &core.ConfigurationError{Problems: []string{"domain is a required field"}}), foundry.ExitConfigInvalid},
		{"invalid type", &core.InvalidTypeError{Type: "parked"}, foundry.ExitConfigInvalid},
		{"transport", core.NewTransportError(core.TransportWhois, "example.com", "whois.verisign-grs.com", errors.New("connection refused")), foundry.ExitExternalServiceUnavailable},
		{"other", errors.New("2 of 3 checks failed"), foundry.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestExitWithCodeStderrUsesCatalogCode(t *testing.T) {
	var got int
	osExit = func(code int) { got = code }
	t.Cleanup(func() { osExit = defaultExit })

	ExitWithCodeStderr(foundry.ExitConfigInvalid, "bad config", errors.New("timeout must be a positive integer"))

	info, ok := foundry.GetExitCodeInfo(foundry.ExitConfigInvalid)
	if assert.True(t, ok) {
		assert.Equal(t, info.Code, got)
	}
}
