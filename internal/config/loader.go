// Package config provides centralized configuration management for domainwatch.
// Settings are layered by viper: code defaults, then the user config file
// discovered in the XDG config directory, then DOMAINWATCH_* environment
// variables and bound command flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/namelens/domainwatch/internal/core"
)

const (
	// AppName is used for binary, config directory and data directory names.
	AppName = "domainwatch"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DOMAINWATCH"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every known key so environment overrides are picked
// up by Load.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.environment", "production")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.state", "sql")

	// Redis defaults (only used when store.state is redis)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key_prefix", "domainwatch:")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	// Transport defaults
	v.SetDefault("whois.servers", map[string]string{})
	v.SetDefault("whois.available_patterns", []string{})
	v.SetDefault("whois.taken_patterns", []string{})
	v.SetDefault("rdap.servers", map[string][]string{})

	// Sink defaults
	v.SetDefault("sinks.writer.enabled", true)
	v.SetDefault("sinks.writer.path", "-")
	v.SetDefault("sinks.store.enabled", true)
	v.SetDefault("sinks.kafka.enabled", false)
	v.SetDefault("sinks.kafka.brokers", []string{})
	v.SetDefault("sinks.kafka.topic", "domainwatch.events")
	v.SetDefault("sinks.kafka.client_id", AppName)

	// Schedule defaults
	v.SetDefault("schedule.interval", "1h")
}

// ConfigureEnv wires DOMAINWATCH_* environment variables into v.
// Nested keys use underscores: DOMAINWATCH_STORE_DRIVER maps to store.driver.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings held by v into a typed Config and makes it the
// current configuration.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("viper instance is required")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)

	return cfg, nil
}

// MonitorConfigs validates every configured monitor. Each entry is laid over
// core.DefaultOptions, so a bare domain is a complete monitor. All problems
// across all monitors are returned together.
func (c *Config) MonitorConfigs() ([]core.CheckConfiguration, error) {
	if c == nil {
		return nil, nil
	}

	monitors := make([]core.CheckConfiguration, 0, len(c.Monitors))
	seen := make(map[string]int, len(c.Monitors))
	var errs []error

	for i, options := range c.Monitors {
		merged := core.DefaultOptions()
		for key, value := range options {
			merged[strings.ToLower(key)] = value
		}
		cfg, err := core.ParseCheckOptions(merged)
		if err != nil {
			errs = append(errs, fmt.Errorf("monitors[%d]: %w", i, err))
			continue
		}
		if prev, ok := seen[cfg.Name]; ok {
			errs = append(errs, fmt.Errorf("monitors[%d]: %w", i, &core.ConfigurationError{
				Monitor:  cfg.Name,
				Problems: []string{fmt.Sprintf("name duplicates monitors[%d]", prev)},
			}))
			continue
		}
		seen[cfg.Name] = i
		monitors = append(monitors, cfg)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return monitors, nil
}

// FindMonitor returns the validated monitor with the given name.
func (c *Config) FindMonitor(name string) (core.CheckConfiguration, bool, error) {
	monitors, err := c.MonitorConfigs()
	if err != nil {
		return core.CheckConfiguration{}, false, err
	}
	for _, monitor := range monitors {
		if monitor.Name == name {
			return monitor, true, nil
		}
	}
	return core.CheckConfiguration{}, false, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG-compliant config directory.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
