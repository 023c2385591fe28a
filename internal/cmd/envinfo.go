package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()

		log.Info("=== domainwatch Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + config.AppName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		cfg, err := loadConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		log.Info(fmt.Sprintf("  Server:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info("  DB Driver:      "+cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  DB URL:         " + redactURL(cfg.Store.URL))
		} else {
			log.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		log.Info("  State Backend:  "+cfg.Store.State, zap.String("state", cfg.Store.State))
		log.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		log.Info("  Interval:       " + cfg.Schedule.Interval.String())
		log.Info("")

		log.Info("Sinks:")
		log.Info(fmt.Sprintf("  Writer:  %t (%s)", cfg.Sinks.Writer.Enabled, cfg.Sinks.Writer.Path))
		log.Info(fmt.Sprintf("  Store:   %t", cfg.Sinks.Store.Enabled))
		log.Info(fmt.Sprintf("  Kafka:   %t (%s)", cfg.Sinks.Kafka.Enabled, cfg.Sinks.Kafka.Topic))
		log.Info("")

		monitors, err := cfg.MonitorConfigs()
		log.Info("Monitors:")
		if err != nil {
			log.Warn("  invalid monitor configuration", zap.Error(err))
		}
		for _, monitor := range monitors {
			log.Info(fmt.Sprintf("  %s: %s %s via %s", monitor.Name, monitor.Domain, monitor.CheckType, monitor.Transport))
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

// redactURL hides credentials embedded in a connection URL.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
