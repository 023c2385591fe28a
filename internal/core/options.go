package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Option keys recognized in a monitor definition.
const (
	OptionName                  = "name"
	OptionDomain                = "domain"
	OptionType                  = "type"
	OptionTimeout               = "timeout"
	OptionChangesOnly           = "changes_only"
	OptionDebug                 = "debug"
	OptionExpectedReceivePeriod = "expected_receive_period_in_days"
	OptionTransport             = "transport"
)

// DefaultOptions returns the template a new monitor starts from. The domain
// is left blank on purpose: it has to be filled in before validation passes.
func DefaultOptions() map[string]any {
	return map[string]any{
		OptionDebug:                 "false",
		OptionExpectedReceivePeriod: "2",
		OptionDomain:                "",
		OptionTimeout:               "5",
		OptionType:                  string(CheckTypeRegistered),
		OptionChangesOnly:           "true",
	}
}

type rawOptions struct {
	Name                  any `mapstructure:"name"`
	Domain                any `mapstructure:"domain"`
	Type                  any `mapstructure:"type"`
	Timeout               any `mapstructure:"timeout"`
	ChangesOnly           any `mapstructure:"changes_only"`
	Debug                 any `mapstructure:"debug"`
	ExpectedReceivePeriod any `mapstructure:"expected_receive_period_in_days"`
	Transport             any `mapstructure:"transport"`
}

// ParseCheckOptions validates a monitor option map and builds the immutable
// configuration. All problems are reported together in a ConfigurationError.
func ParseCheckOptions(options map[string]any) (CheckConfiguration, error) {
	var raw rawOptions
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &raw,
		Metadata: &meta,
	})
	if err != nil {
		return CheckConfiguration{}, fmt.Errorf("create option decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return CheckConfiguration{}, &ConfigurationError{Problems: []string{err.Error()}}
	}

	present := make(map[string]bool, len(meta.Keys))
	for _, key := range meta.Keys {
		present[key] = true
	}

	var problems []string
	cfg := CheckConfiguration{
		CheckType:   CheckTypeRegistered,
		ChangesOnly: true,
		Transport:   TransportWhois,
	}

	if value := stringOption(raw.Type); value != "" {
		checkType := CheckType(strings.ToLower(value))
		if !checkType.Valid() {
			problems = append(problems, "type has invalid value: should be 'registered' 'available'")
		} else {
			cfg.CheckType = checkType
		}
	}

	if present[OptionChangesOnly] {
		if value, ok := Boolify(raw.ChangesOnly); ok {
			cfg.ChangesOnly = value
		} else {
			problems = append(problems, "if provided, changes_only must be true or false")
		}
	}

	cfg.Domain = strings.ToLower(stringOption(raw.Domain))
	if cfg.Domain == "" {
		problems = append(problems, "domain is a required field")
	}

	if isBlank(raw.Timeout) {
		problems = append(problems, "timeout is a required field")
	} else if timeout, ok := positiveInt(raw.Timeout); ok {
		cfg.TimeoutSeconds = timeout
	} else {
		problems = append(problems, "timeout must be a positive integer")
	}

	if present[OptionDebug] {
		if value, ok := Boolify(raw.Debug); ok {
			cfg.Debug = value
		} else {
			problems = append(problems, "if provided, debug must be true or false")
		}
	}

	if days, ok := positiveInt(raw.ExpectedReceivePeriod); ok {
		cfg.ExpectedReceivePeriodDays = days
	} else {
		problems = append(problems, "Please provide 'expected_receive_period_in_days' to indicate how many days can pass before this monitor is considered to be not working")
	}

	if value := strings.ToLower(stringOption(raw.Transport)); value != "" {
		switch value {
		case TransportWhois, TransportRDAP:
			cfg.Transport = value
		default:
			problems = append(problems, "transport has invalid value: should be 'whois' 'rdap'")
		}
	}

	cfg.Name = stringOption(raw.Name)
	if cfg.Name == "" {
		cfg.Name = cfg.Domain
	}

	if len(problems) > 0 {
		return CheckConfiguration{}, &ConfigurationError{Monitor: cfg.Name, Problems: problems}
	}
	return cfg, nil
}

// Boolify interprets true/false given as booleans or strings. Any other
// value is rejected.
func Boolify(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func stringOption(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func isBlank(value any) bool {
	return stringOption(value) == ""
}

func positiveInt(value any) (int, bool) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt32 {
			return 0, false
		}
		n = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if n <= 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}
