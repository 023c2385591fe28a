package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckEventPayload(t *testing.T) {
	event := CheckEvent{Domain: "example.com", CheckType: CheckTypeRegistered, Value: true}
	require.Equal(t, map[string]string{"domain": "example.com", "registered": "true"}, event.Payload())

	event = CheckEvent{Domain: "example.org", CheckType: CheckTypeAvailable, Value: false}
	require.Equal(t, map[string]string{"domain": "example.org", "available": "false"}, event.Payload())
}

func TestCheckStateSlotsAreIndependent(t *testing.T) {
	state := CheckState{}
	require.Nil(t, state.Stored(CheckTypeRegistered))
	require.Nil(t, state.Stored(CheckTypeAvailable))

	state = state.With(CheckTypeRegistered, true)
	state = state.With(CheckTypeAvailable, false)

	require.True(t, *state.Stored(CheckTypeRegistered))
	require.False(t, *state.Stored(CheckTypeAvailable))

	next := state.With(CheckTypeRegistered, false)
	require.True(t, *state.Stored(CheckTypeRegistered), "With must not mutate the receiver")
	require.False(t, *next.Stored(CheckTypeRegistered))
	require.False(t, *next.Stored(CheckTypeAvailable))
	require.False(t, state.Equal(next))
	require.True(t, next.Equal(next.With(CheckTypeAvailable, false)))
}

func TestMemoryKey(t *testing.T) {
	require.Equal(t, "is_registered", CheckTypeRegistered.MemoryKey())
	require.Equal(t, "is_available", CheckTypeAvailable.MemoryKey())
	require.Equal(t, "", CheckType("bogus").MemoryKey())
}

func TestTransportErrorClassification(t *testing.T) {
	err := NewTransportError(TransportWhois, "example.com", "whois.verisign-grs.com", fmt.Errorf("dial: %w", errDeadline))
	require.True(t, err.Timeout)
	require.True(t, IsTimeout(err))
	require.Contains(t, err.Error(), "whois lookup for example.com via whois.verisign-grs.com timed out")

	plain := NewTransportError(TransportRDAP, "example.com", "", errors.New("connection refused"))
	require.False(t, plain.Timeout)
	require.False(t, IsTimeout(plain))
	require.Contains(t, plain.Error(), "rdap lookup for example.com failed: connection refused")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var errDeadline error = timeoutErr{}
