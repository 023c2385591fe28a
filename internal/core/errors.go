package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ConfigurationError collects every validation problem found in a set of
// monitor options. It is returned before any cycle runs.
type ConfigurationError struct {
	Monitor  string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	prefix := "invalid monitor configuration"
	if e.Monitor != "" {
		prefix = fmt.Sprintf("invalid monitor configuration %q", e.Monitor)
	}
	return prefix + ": " + strings.Join(e.Problems, "; ")
}

// TransportError reports a lookup that could not complete.
type TransportError struct {
	Domain  string
	Source  string
	Server  string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if b.Len() == 0 {
		b.WriteString("lookup")
	}
	b.WriteString(" lookup for ")
	b.WriteString(e.Domain)
	if e.Server != "" {
		b.WriteString(" via ")
		b.WriteString(e.Server)
	}
	if e.Timeout {
		b.WriteString(" timed out")
	} else {
		b.WriteString(" failed")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err, classifying deadline and network timeouts.
func NewTransportError(source, domain, server string, err error) *TransportError {
	return &TransportError{
		Domain:  domain,
		Source:  source,
		Server:  server,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Timeout
	}
	return isTimeout(err)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// InvalidTypeError is returned when a cycle runs with an unrecognized check
// type. Validation makes this unreachable for parsed configurations.
type InvalidTypeError struct {
	Type CheckType
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("type has an invalid value (%s)", string(e.Type))
}
