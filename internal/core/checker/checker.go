package checker

//go:generate mockgen -source=checker.go -destination=mock/mockchecker.go -package=mockchecker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/domainwatch/internal/core"
)

// Transport performs a single registration lookup for a domain.
type Transport interface {
	// Lookup returns the parsed registration flags or a *core.TransportError.
	Lookup(ctx context.Context, domain string, timeout time.Duration) (*core.LookupResult, error)
}

// Transports maps a transport name to its implementation.
type Transports map[string]Transport

// For returns the transport a monitor is configured to use.
func (t Transports) For(name string) (Transport, error) {
	if name == "" {
		name = core.TransportWhois
	}
	transport, ok := t[name]
	if !ok || transport == nil {
		return nil, fmt.Errorf("transport %q is not configured", name)
	}
	return transport, nil
}

// ErrMalformedResponse is wrapped by transports when a response cannot be
// reduced to a registered/available flag.
var ErrMalformedResponse = errors.New("malformed response")

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func splitDomain(domain string) (string, string, error) {
	value := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if value == "" {
		return "", "", errors.New("domain is required")
	}

	parts := strings.Split(value, ".")
	if len(parts) < 2 || parts[len(parts)-1] == "" {
		return "", "", errors.New("domain must include a tld")
	}

	return value, parts[len(parts)-1], nil
}
