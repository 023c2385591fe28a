package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values come from code defaults, the user config file
// (~/.config/domainwatch/config.yaml) and DOMAINWATCH_* environment
// variables, in increasing precedence.
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Store    StoreConfig      `mapstructure:"store"`
	Redis    RedisConfig      `mapstructure:"redis"`
	Logging  LoggingConfig    `mapstructure:"logging"`
	Metrics  MetricsConfig    `mapstructure:"metrics"`
	Health   HealthConfig     `mapstructure:"health"`
	Whois    WhoisConfig      `mapstructure:"whois"`
	RDAP     RDAPConfig       `mapstructure:"rdap"`
	Sinks    SinksConfig      `mapstructure:"sinks"`
	Schedule ScheduleConfig   `mapstructure:"schedule"`
	Monitors []map[string]any `mapstructure:"monitors"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration.
//
// Driver selects the SQL backend: libsql (default, local file or Turso),
// sqlite (pure Go) or postgres. State selects where monitor memory lives:
// sql (the same database) or redis.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
	State     string `mapstructure:"state"`
}

// RedisConfig configures the optional Redis state backend.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Environment is attached to structured log lines.
	Environment string `mapstructure:"environment"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// WhoisConfig tunes the WHOIS transport.
type WhoisConfig struct {
	Servers           map[string]string `mapstructure:"servers"`
	AvailablePatterns []string          `mapstructure:"available_patterns"`
	TakenPatterns     []string          `mapstructure:"taken_patterns"`
}

// RDAPConfig tunes the RDAP transport.
type RDAPConfig struct {
	// Servers routes TLDs to specific RDAP base URLs, bypassing bootstrap.
	Servers map[string][]string `mapstructure:"servers"`
}

// SinksConfig selects where events are delivered.
type SinksConfig struct {
	Writer WriterSinkConfig `mapstructure:"writer"`
	Store  StoreSinkConfig  `mapstructure:"store"`
	Kafka  KafkaSinkConfig  `mapstructure:"kafka"`
}

// WriterSinkConfig writes one JSON payload per line.
type WriterSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is a file to append to; empty or "-" means stdout.
	Path string `mapstructure:"path"`
}

// StoreSinkConfig records events in the events table.
type StoreSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// KafkaSinkConfig publishes events to a Kafka topic.
type KafkaSinkConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// ScheduleConfig controls the watch loop.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}
