package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: configuration loads, every monitor validates and
the configured store and state backends are reachable. No lookups are made.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewInternalError("Version information missing"))
			return
		}
		log.Debug("Version check passed", zap.String("version", versionInfo.Version))
		log.Info("✅ Version information available")

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Configuration failed to load", err)
			return
		}
		log.Info("✅ Configuration loaded")

		monitors, err := cfg.MonitorConfigs()
		if err != nil {
			ExitWithCode(log, foundry.ExitConfigInvalid, "Monitor configuration invalid", err)
			return
		}
		log.Info("✅ Monitors valid", zap.Int("count", len(monitors)))

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		a, err := newApp(ctx, appOptions{noSinks: true})
		if err != nil {
			ExitWithCode(log, foundry.ExitExternalServiceUnavailable, "Store unavailable", err)
			return
		}
		defer a.Close()

		for name, checker := range a.health {
			if err := checker.CheckHealth(ctx); err != nil {
				a.Close()
				ExitWithCode(log, foundry.ExitExternalServiceUnavailable, name+" unreachable", err)
				return
			}
			log.Info("✅ " + name + " reachable")
		}

		log.Info("")
		log.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
