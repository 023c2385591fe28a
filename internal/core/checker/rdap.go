package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openrdap/rdap"

	"github.com/namelens/domainwatch/internal/core"
)

var defaultRDAPOverrides = map[string][]string{
	"app": {"https://pubapi.registry.google/rdap"},
	"dev": {"https://pubapi.registry.google/rdap"},
}

// RDAPTransport answers lookups through RDAP. Without an override for the
// TLD the client resolves the server through the IANA bootstrap registry.
type RDAPTransport struct {
	Client *rdap.Client

	// Overrides routes specific TLDs to known-good RDAP servers. Keys are
	// normalized TLDs without a leading dot.
	Overrides map[string][]string
}

// NewRDAPTransport builds an RDAP transport with optional server overrides.
func NewRDAPTransport(overrides map[string][]string) *RDAPTransport {
	merged := make(map[string][]string, len(defaultRDAPOverrides)+len(overrides))
	for tld, servers := range defaultRDAPOverrides {
		merged[tld] = servers
	}
	for tld, servers := range overrides {
		key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tld), "."))
		if key == "" {
			continue
		}
		merged[key] = servers
	}
	return &RDAPTransport{Client: &rdap.Client{}, Overrides: merged}
}

// Lookup performs an RDAP domain query bounded by timeout. Servers are tried
// in order until one gives a definitive answer.
func (t *RDAPTransport) Lookup(ctx context.Context, domain string, timeout time.Duration) (*core.LookupResult, error) {
	name, tld, err := splitDomain(domain)
	if err != nil {
		return nil, core.NewTransportError(core.TransportRDAP, domain, "", err)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	client := t.Client
	if client == nil {
		client = &rdap.Client{}
	}

	servers := t.Overrides[tld]
	if len(servers) == 0 {
		// an empty server lets the client bootstrap from IANA
		servers = []string{""}
	}

	var lastErr error
	for _, base := range servers {
		req := rdap.NewDomainRequest(name)
		requestURL := ""
		if base != "" {
			serverURL, err := url.Parse(base)
			if err != nil {
				return nil, core.NewTransportError(core.TransportRDAP, name, base, fmt.Errorf("invalid rdap server url: %w", err))
			}
			req = req.WithServer(serverURL)
			requestURL = rdapDomainURL(serverURL, name)
		}
		if timeout > 0 {
			req.Timeout = timeout
		}
		req = req.WithContext(ctx)

		resp, reqErr := client.Do(req)
		statusCode, server := responseStatus(resp, requestURL)

		if reqErr != nil {
			if isNotFound(reqErr) || statusCode == http.StatusNotFound {
				return rdapResult(false, server, "rdap not found"), nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, core.NewTransportError(core.TransportRDAP, name, server, fmt.Errorf("%w: %w", ctxErr, reqErr))
			}
			lastErr = core.NewTransportError(core.TransportRDAP, name, server, rdapStatusError(statusCode, reqErr))
			continue
		}

		if _, ok := resp.Object.(*rdap.Domain); ok {
			return rdapResult(true, server, "domain found"), nil
		}

		lastErr = core.NewTransportError(core.TransportRDAP, name, server, fmt.Errorf("%w: unexpected rdap object %T", ErrMalformedResponse, resp.Object))
	}

	if lastErr == nil {
		lastErr = core.NewTransportError(core.TransportRDAP, name, "", errors.New("no rdap servers responded"))
	}
	return nil, lastErr
}

func rdapResult(registered bool, server, message string) *core.LookupResult {
	return &core.LookupResult{
		Registered: registered,
		Available:  !registered,
		Source:     core.TransportRDAP,
		Server:     server,
		Message:    message,
	}
}

func rdapStatusError(statusCode int, err error) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rdap rate limited: %w", err)
	case statusCode >= 500 && statusCode <= 599:
		return fmt.Errorf("rdap server error (%d): %w", statusCode, err)
	default:
		return err
	}
}

func rdapDomainURL(server *url.URL, domain string) string {
	if server == nil {
		return ""
	}

	temp := *server
	temp.RawQuery = ""
	temp.Fragment = ""
	base := temp.String()
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "domain/" + strings.TrimSpace(domain)
}

func responseStatus(resp *rdap.Response, fallbackURL string) (int, string) {
	if resp == nil || len(resp.HTTP) == 0 || resp.HTTP[0] == nil || resp.HTTP[0].Response == nil {
		return 0, strings.TrimSpace(fallbackURL)
	}

	hrr := resp.HTTP[0].Response
	server := resp.HTTP[0].URL
	if strings.TrimSpace(server) == "" {
		server = strings.TrimSpace(fallbackURL)
	}

	return hrr.StatusCode, server
}

func isNotFound(err error) bool {
	var clientErr *rdap.ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return clientErr.Type == rdap.ObjectDoesNotExist
}
