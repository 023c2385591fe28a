package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
	errwrap "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/metrics"
	"github.com/namelens/domainwatch/internal/observability"
)

var watchCmd = &cobra.Command{
	Use:   "watch [monitor...]",
	Short: "Run monitors on a schedule",
	Long: `Run every configured monitor (or the named ones) immediately and then on
a fixed interval until interrupted. Failed cycles are logged and retried on
the next tick.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Finish in-flight lookups and stop`,
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.InitServerLogger(config.AppName, viper.GetString("logging.level"), viper.GetString("logging.environment"))

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		monitors, err := selectMonitors(a.cfg, args)
		if err != nil {
			return err
		}
		if len(monitors) == 0 {
			return errNoMonitors
		}

		interval := a.cfg.Schedule.Interval
		if flag := cmd.Flags().Lookup("interval"); flag != nil && flag.Changed {
			interval, _ = cmd.Flags().GetDuration("interval")
		}

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Stopping scheduler...")
			cancel()
			return nil
		})
		go func() {
			if err := signals.Listen(ctx); err != nil && ctx.Err() == nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
			}
		}()

		if err := newScheduler(a, monitors, interval).Run(ctx); err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "scheduler failed")
		}
		return nil
	},
}

// newScheduler wires the shared runner into a scheduler that reports each
// cycle to metrics.
func newScheduler(a *app, monitors []core.CheckConfiguration, interval time.Duration) *engine.Scheduler {
	metrics.SetMonitorsConfigured(len(monitors))

	return &engine.Scheduler{
		Runner:   a.runner,
		Monitors: monitors,
		Interval: interval,
		Logger:   observability.Logger(),
		OnCycle: func(cfg core.CheckConfiguration, result *engine.Result, err error) {
			if err != nil || result == nil {
				return
			}
			observability.Logger().Debug("Cycle complete",
				zap.String("monitor", cfg.Name),
				zap.Bool("changed", result.Changed),
				zap.Bool("emitted", result.Event != nil),
			)
		},
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", engine.DefaultInterval, "time between cycles of each monitor (overrides schedule.interval)")
}
