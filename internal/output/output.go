// Package output renders monitor statuses, check results and events for the
// command line.
package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// CheckRow is the outcome of one check invocation. Exactly one of Result and
// Error is set.
type CheckRow struct {
	Monitor string         `json:"monitor" yaml:"monitor"`
	Domain  string         `json:"domain" yaml:"domain"`
	Type    core.CheckType `json:"type" yaml:"type"`
	Result  *engine.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Formatter renders the command outputs.
type Formatter interface {
	FormatChecks(rows []CheckRow) (string, error)
	FormatStatuses(statuses []core.MonitorStatus) (string, error)
	FormatEvents(events []core.CheckEvent) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func checkOutcome(row CheckRow) (value, outcome string) {
	if row.Error != "" {
		return "-", "error: " + row.Error
	}
	if row.Result == nil {
		return "-", "no result"
	}

	if stored := row.Result.State.Stored(row.Type); stored != nil {
		value = strconv.FormatBool(*stored)
	} else {
		value = "-"
	}
	if row.Result.Event != nil {
		value = strconv.FormatBool(row.Result.Event.Value)
	}

	switch {
	case row.Result.DryRun && row.Result.Event != nil:
		outcome = "would emit"
	case row.Result.DryRun:
		outcome = "would stay quiet"
	case row.Result.Event != nil && row.Result.Changed:
		outcome = "changed, emitted"
	case row.Result.Event != nil:
		outcome = "emitted"
	default:
		outcome = "unchanged"
	}
	return value, outcome
}

func stateLabel(value *bool) string {
	if value == nil {
		return "unknown"
	}
	return strconv.FormatBool(*value)
}

func timeLabel(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func workingLabel(working bool) string {
	if working {
		return "working"
	}
	return "not working"
}
