package core

import (
	"strconv"
	"time"
)

// CheckType identifies which WHOIS flag a monitor tracks.
type CheckType string

const (
	CheckTypeRegistered CheckType = "registered"
	CheckTypeAvailable  CheckType = "available"
)

// Valid reports whether the check type is one of the recognized values.
func (t CheckType) Valid() bool {
	return t == CheckTypeRegistered || t == CheckTypeAvailable
}

// MemoryKey returns the state slot key the check type reads and writes.
func (t CheckType) MemoryKey() string {
	switch t {
	case CheckTypeRegistered:
		return MemoryKeyRegistered
	case CheckTypeAvailable:
		return MemoryKeyAvailable
	default:
		return ""
	}
}

// State slot keys persisted per monitor.
const (
	MemoryKeyRegistered = "is_registered"
	MemoryKeyAvailable  = "is_available"
)

// Transport names.
const (
	TransportWhois = "whois"
	TransportRDAP  = "rdap"
)

// CheckConfiguration holds the immutable settings of one monitor.
// Build it with ParseCheckOptions so the invariants hold.
type CheckConfiguration struct {
	Name                      string    `json:"name" yaml:"name"`
	Domain                    string    `json:"domain" yaml:"domain"`
	CheckType                 CheckType `json:"type" yaml:"type"`
	TimeoutSeconds            int       `json:"timeout" yaml:"timeout"`
	ChangesOnly               bool      `json:"changes_only" yaml:"changes_only"`
	Debug                     bool      `json:"debug" yaml:"debug"`
	ExpectedReceivePeriodDays int       `json:"expected_receive_period_in_days" yaml:"expected_receive_period_in_days"`
	Transport                 string    `json:"transport" yaml:"transport"`
}

// Timeout returns the lookup timeout as a duration.
func (c CheckConfiguration) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExpectedReceivePeriod returns the liveness window as a duration.
func (c CheckConfiguration) ExpectedReceivePeriod() time.Duration {
	return time.Duration(c.ExpectedReceivePeriodDays) * 24 * time.Hour
}

// CheckState is the last observed value per check type. A nil slot means
// nothing has been observed yet.
type CheckState struct {
	LastRegistered *bool `json:"is_registered,omitempty" yaml:"is_registered,omitempty"`
	LastAvailable  *bool `json:"is_available,omitempty" yaml:"is_available,omitempty"`
}

// Stored returns the slot for the given check type.
func (s CheckState) Stored(checkType CheckType) *bool {
	switch checkType {
	case CheckTypeRegistered:
		return s.LastRegistered
	case CheckTypeAvailable:
		return s.LastAvailable
	default:
		return nil
	}
}

// With returns a copy of the state with the slot for checkType set to value.
func (s CheckState) With(checkType CheckType, value bool) CheckState {
	v := value
	switch checkType {
	case CheckTypeRegistered:
		s.LastRegistered = &v
	case CheckTypeAvailable:
		s.LastAvailable = &v
	}
	return s
}

// Equal reports whether both states hold the same observations.
func (s CheckState) Equal(other CheckState) bool {
	return boolPtrEqual(s.LastRegistered, other.LastRegistered) &&
		boolPtrEqual(s.LastAvailable, other.LastAvailable)
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CheckEvent is emitted when a cycle meets the emission criteria.
type CheckEvent struct {
	ID        string    `json:"id" yaml:"id"`
	Monitor   string    `json:"monitor" yaml:"monitor"`
	Domain    string    `json:"domain" yaml:"domain"`
	CheckType CheckType `json:"type" yaml:"type"`
	Value     bool      `json:"value" yaml:"value"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Payload returns the flat event body delivered to sinks, with the flag
// rendered as a string to match the established event shape.
func (e CheckEvent) Payload() map[string]string {
	return map[string]string{
		"domain":            e.Domain,
		string(e.CheckType): strconv.FormatBool(e.Value),
	}
}

// LookupResult is the parsed outcome of one lookup.
type LookupResult struct {
	Registered bool   `json:"registered"`
	Available  bool   `json:"available"`
	Source     string `json:"source,omitempty"`
	Server     string `json:"server,omitempty"`
	Message    string `json:"message,omitempty"`
	RawHash    string `json:"raw_hash,omitempty"`
}

// Flag returns the boolean the check type inspects.
func (r LookupResult) Flag(checkType CheckType) (bool, bool) {
	switch checkType {
	case CheckTypeRegistered:
		return r.Registered, true
	case CheckTypeAvailable:
		return r.Available, true
	default:
		return false, false
	}
}

// MonitorActivity tracks host-side timestamps used by the liveness predicate.
type MonitorActivity struct {
	LastCheckAt *time.Time `json:"last_check_at,omitempty" yaml:"last_check_at,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty" yaml:"last_event_at,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty" yaml:"last_error_at,omitempty"`
	LastError   string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// MonitorStatus is the operator-facing view of one monitor.
type MonitorStatus struct {
	Config   CheckConfiguration `json:"config" yaml:"config"`
	State    CheckState         `json:"state" yaml:"state"`
	Activity MonitorActivity    `json:"activity" yaml:"activity"`
	Working  bool               `json:"working" yaml:"working"`
}
