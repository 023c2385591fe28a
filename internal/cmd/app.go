package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/checker"
	"github.com/namelens/domainwatch/internal/core/engine"
	"github.com/namelens/domainwatch/internal/core/sink"
	"github.com/namelens/domainwatch/internal/core/store"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/server/handlers"
)

// recordStore holds activity, events and logs. Both store.Store and
// store.Memory satisfy it.
type recordStore interface {
	engine.StateStore
	engine.ActivityStore
	sink.EventAppender
	ListEvents(ctx context.Context, monitor string, limit uint) ([]core.CheckEvent, error)
	ListLogs(ctx context.Context, monitor string, limit uint) ([]store.LogEntry, error)
}

type appOptions struct {
	// ephemeral keeps all state in process memory.
	ephemeral bool
	// noSinks skips event delivery setup, for read-only commands.
	noSinks bool
}

// app bundles the wired components shared by the commands.
type app struct {
	cfg     *config.Config
	records recordStore
	state   engine.StateStore
	runner  *engine.Runner
	health  map[string]handlers.HealthChecker
	closers []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, health: make(map[string]handlers.HealthChecker)}

	if err := a.openRecords(ctx, opts.ephemeral); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openState(ctx, opts.ephemeral); err != nil {
		a.Close()
		return nil, err
	}

	var eventSink engine.EventSink = sink.Discard{}
	if !opts.noSinks {
		eventSink, err = a.buildSink()
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	logger := observability.Logger()
	a.runner = &engine.Runner{
		Engine: &engine.Engine{
			Transports: buildTransports(cfg),
			Logger:     logger,
		},
		State:    a.state,
		Activity: a.records,
		Sink:     eventSink,
		Logger:   logger,
	}

	return a, nil
}

func (a *app) openRecords(ctx context.Context, ephemeral bool) error {
	if ephemeral {
		a.records = store.NewMemory()
		return nil
	}

	db, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	a.records = db
	a.health["store"] = pingChecker(db.DB.PingContext)
	return nil
}

func (a *app) openState(ctx context.Context, ephemeral bool) error {
	backend := strings.ToLower(strings.TrimSpace(a.cfg.Store.State))
	switch {
	case ephemeral, backend == "", backend == "sql":
		a.state = a.records
		return nil
	case backend == "redis":
		state, err := store.NewRedisState(ctx, a.cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, state.Close)
		a.state = state
		a.health["redis"] = pingChecker(state.Health)
		return nil
	default:
		return fmt.Errorf("unsupported state backend: %s", a.cfg.Store.State)
	}
}

func (a *app) buildSink() (engine.EventSink, error) {
	var sinks sink.MultiSink

	if a.cfg.Sinks.Store.Enabled {
		sinks = append(sinks, &sink.StoreSink{Store: a.records})
	}

	if a.cfg.Sinks.Writer.Enabled {
		writer, err := sink.OpenWriterSink(a.cfg.Sinks.Writer.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, writer.Close)
		sinks = append(sinks, writer)
	}

	if a.cfg.Sinks.Kafka.Enabled {
		kafka, err := sink.NewKafkaSink(a.cfg.Sinks.Kafka)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kafka.Close)
		sinks = append(sinks, kafka)
	}

	if len(sinks) == 0 {
		observability.Logger().Warn("No event sinks enabled; events will be dropped")
	}
	return sinks, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			observability.Logger().Warn("Failed to release resource", zap.Error(err))
		}
	}
	a.closers = nil
}

func buildTransports(cfg *config.Config) checker.Transports {
	patterns := checker.DefaultWhoisPatterns(cfg.Whois.AvailablePatterns, cfg.Whois.TakenPatterns)
	return checker.Transports{
		core.TransportWhois: checker.NewWhoisTransport(cfg.Whois.Servers, patterns),
		core.TransportRDAP:  checker.NewRDAPTransport(cfg.RDAP.Servers),
	}
}

// selectMonitors returns the configured monitors named in names, or all of
// them when names is empty.
func selectMonitors(cfg *config.Config, names []string) ([]core.CheckConfiguration, error) {
	monitors, err := cfg.MonitorConfigs()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return monitors, nil
	}

	byName := make(map[string]core.CheckConfiguration, len(monitors))
	for _, monitor := range monitors {
		byName[monitor.Name] = monitor
	}

	selected := make([]core.CheckConfiguration, 0, len(names))
	var missing []string
	for _, name := range names {
		monitor, ok := byName[strings.TrimSpace(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected = append(selected, monitor)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown monitor(s): %s", strings.Join(missing, ", "))
	}
	return selected, nil
}

// adHocMonitor builds a monitor from command flags laid over the defaults.
func adHocMonitor(overrides map[string]any) (core.CheckConfiguration, error) {
	options := core.DefaultOptions()
	for key, value := range overrides {
		options[key] = value
	}
	return core.ParseCheckOptions(options)
}

// pingChecker adapts a ping function to the health checker interface.
type pingChecker func(ctx context.Context) error

func (p pingChecker) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p(ctx)
}

var errNoMonitors = errors.New("no monitors configured; add entries under \"monitors\" or pass --domain")
