package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/namelens/domainwatch/internal/observability"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configured monitors",
	Long:  "Validate every monitor in the config file and report all problems at once.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		monitors, err := cfg.MonitorConfigs()
		if err != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Monitor configuration invalid", err)
			return nil
		}
		if len(monitors) == 0 {
			return errNoMonitors
		}

		out := cmd.OutOrStdout()
		for _, monitor := range monitors {
			_, _ = fmt.Fprintf(out, "ok  %-20s %-28s %-10s via %-5s timeout %ds\n",
				monitor.Name, monitor.Domain, monitor.CheckType, monitor.Transport, monitor.TimeoutSeconds)
		}
		_, _ = fmt.Fprintf(out, "%d monitor(s) valid\n", len(monitors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
