package cmd

import (
	"github.com/spf13/cobra"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status [monitor...]",
	Short: "Show stored state and liveness of monitors",
	Long: `Show the last observed value, activity timestamps and working status of
the named monitors, or of every configured monitor. No lookups are made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{noSinks: true})
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

		statuses := make([]core.MonitorStatus, 0, len(monitors))
		for _, monitor := range monitors {
			status, err := a.runner.Status(ctx, monitor)
			if err != nil {
				return err
			}
			statuses = append(statuses, status)
		}

		rendered, err := output.NewFormatter(format).FormatStatuses(statuses)
		if err != nil {
			return err
		}
		return writeOutput(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().String("output-format", "table", "output format: table, json, yaml, markdown")
	statusCmd.Flags().String("out", "", "write output to file (default stdout)")
}
