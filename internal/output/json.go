package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/namelens/domainwatch/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatChecks(rows []CheckRow) (string, error) {
	return f.marshal(nonNil(rows))
}

func (f *JSONFormatter) FormatStatuses(statuses []core.MonitorStatus) (string, error) {
	return f.marshal(nonNil(statuses))
}

func (f *JSONFormatter) FormatEvents(events []core.CheckEvent) (string, error) {
	return f.marshal(nonNil(events))
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAMLFormatter renders results as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatChecks(rows []CheckRow) (string, error) {
	return marshalYAML(nonNil(rows))
}

func (f *YAMLFormatter) FormatStatuses(statuses []core.MonitorStatus) (string, error) {
	return marshalYAML(nonNil(statuses))
}

func (f *YAMLFormatter) FormatEvents(events []core.CheckEvent) (string, error) {
	return marshalYAML(nonNil(events))
}

func marshalYAML(value any) (string, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// nonNil keeps empty listings rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
