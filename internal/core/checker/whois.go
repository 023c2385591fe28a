package checker

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/namelens/domainwatch/internal/core"
)

const (
	whoisIanaServer = "whois.iana.org"
	whoisPort       = "43"
	whoisMaxBytes   = 128 * 1024
)

// WhoisClient performs WHOIS lookups.
type WhoisClient interface {
	Lookup(ctx context.Context, tld, domain string) (*WhoisResponse, error)
}

// WhoisResponse contains WHOIS response data.
type WhoisResponse struct {
	Server string
	Body   string
}

// DefaultWhoisClient is a TCP WHOIS client with optional server overrides.
type DefaultWhoisClient struct {
	Servers map[string]string

	// Port overrides the WHOIS port; tests point it at a local listener.
	Port string
	// ReferralServer overrides whois.iana.org for TLD referral queries.
	ReferralServer string
}

// Lookup queries the WHOIS server responsible for tld.
func (c *DefaultWhoisClient) Lookup(ctx context.Context, tld, domain string) (*WhoisResponse, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, errors.New("whois domain is required")
	}

	server, err := c.ResolveServer(ctx, tld)
	if err != nil {
		return nil, err
	}

	body, err := c.query(ctx, server, domain)
	if err != nil {
		return &WhoisResponse{Server: server}, err
	}

	return &WhoisResponse{Server: server, Body: body}, nil
}

// ResolveServer resolves the WHOIS server for a TLD.
func (c *DefaultWhoisClient) ResolveServer(ctx context.Context, tld string) (string, error) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	if tld == "" {
		return "", errors.New("whois tld is required")
	}
	if c != nil && len(c.Servers) > 0 {
		if server := strings.TrimSpace(c.Servers[tld]); server != "" {
			return server, nil
		}
	}

	referral := whoisIanaServer
	if c != nil && strings.TrimSpace(c.ReferralServer) != "" {
		referral = strings.TrimSpace(c.ReferralServer)
	}

	response, err := c.query(ctx, referral, tld)
	if err != nil {
		return "", fmt.Errorf("whois iana query failed: %w", err)
	}

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "refer:") || strings.HasPrefix(lower, "whois:") {
			parts := strings.SplitN(trimmed, ":", 2)
			if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
				return strings.TrimSpace(parts[1]), nil
			}
		}
	}

	return "", fmt.Errorf("no whois server for tld %s", tld)
}

func (c *DefaultWhoisClient) query(ctx context.Context, server, query string) (string, error) {
	port := whoisPort
	if c != nil && c.Port != "" {
		port = c.Port
	}
	return queryWhois(ctx, server, port, query)
}

func queryWhois(ctx context.Context, server, port, query string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", errors.New("whois server is required")
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(server, port))
	if err != nil {
		return "", fmt.Errorf("whois dial failed: %w", err)
	}
	defer conn.Close() // nolint:errcheck // best-effort cleanup on network connection

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", fmt.Errorf("whois query failed: %w", err)
	}

	reader := bufio.NewReader(conn)
	limited := &io.LimitedReader{R: reader, N: whoisMaxBytes}
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("whois read failed: %w", err)
	}

	return string(body), nil
}

// WhoisPatterns provides match strings for availability parsing.
type WhoisPatterns struct {
	Available []string
	Taken     []string
}

// DefaultWhoisPatterns returns the built-in phrase lists, replacing either
// list when an override is given.
func DefaultWhoisPatterns(available, taken []string) WhoisPatterns {
	if len(available) == 0 {
		available = []string{"no match", "not found", "no data found", "no entries found", "status: free", "status: available"}
	}
	if len(taken) == 0 {
		taken = []string{"domain name:", "status: active", "registration status:", "created on", "registrar:"}
	}
	return WhoisPatterns{Available: available, Taken: taken}
}

// WhoisTransport turns raw WHOIS responses into registration flags.
type WhoisTransport struct {
	Client   WhoisClient
	Patterns WhoisPatterns
}

// NewWhoisTransport builds a transport backed by the TCP client.
func NewWhoisTransport(servers map[string]string, patterns WhoisPatterns) *WhoisTransport {
	return &WhoisTransport{
		Client:   &DefaultWhoisClient{Servers: servers},
		Patterns: patterns,
	}
}

// Lookup performs a WHOIS query bounded by timeout.
func (t *WhoisTransport) Lookup(ctx context.Context, domain string, timeout time.Duration) (*core.LookupResult, error) {
	name, tld, err := splitDomain(domain)
	if err != nil {
		return nil, core.NewTransportError(core.TransportWhois, domain, "", err)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	client := t.Client
	if client == nil {
		client = &DefaultWhoisClient{}
	}

	resp, err := client.Lookup(ctx, tld, name)
	server := ""
	if resp != nil {
		server = resp.Server
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, core.NewTransportError(core.TransportWhois, name, server, err)
	}
	if resp == nil {
		return nil, core.NewTransportError(core.TransportWhois, name, "", errors.New("whois lookup returned no response"))
	}

	patterns := t.Patterns
	if len(patterns.Available) == 0 && len(patterns.Taken) == 0 {
		patterns = DefaultWhoisPatterns(nil, nil)
	}

	available, matched := interpretWhois(resp.Body, patterns)
	if !matched {
		return nil, core.NewTransportError(core.TransportWhois, name, resp.Server, fmt.Errorf("%w: no availability marker in whois response", ErrMalformedResponse))
	}

	message := "whois found"
	if available {
		message = "whois not found"
	}

	return &core.LookupResult{
		Registered: !available,
		Available:  available,
		Source:     core.TransportWhois,
		Server:     resp.Server,
		Message:    message,
		RawHash:    whoisHash(resp.Body),
	}, nil
}

// interpretWhois reports availability and whether any pattern matched.
func interpretWhois(body string, patterns WhoisPatterns) (bool, bool) {
	lower := strings.ToLower(body)
	for _, pattern := range patterns.Available {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true, true
		}
	}
	for _, pattern := range patterns.Taken {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return false, true
		}
	}
	return false, false
}

func whoisHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
