package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/domainwatch/internal/output"
)

var eventsCmd = &cobra.Command{
	Use:   "events [monitor]",
	Short: "List recorded events",
	Long: `List events recorded by the store sink, newest first. With --logs, list
the recorded lookup failures instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetUint("limit")
		if err != nil {
			return err
		}
		logs, err := cmd.Flags().GetBool("logs")
		if err != nil {
			return err
		}

		monitor := ""
		if len(args) == 1 {
			monitor = strings.TrimSpace(args[0])
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{noSinks: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if logs {
			entries, err := a.records.ListLogs(ctx, monitor, limit)
			if err != nil {
				return err
			}
			var sb strings.Builder
			for _, entry := range entries {
				sb.WriteString(fmt.Sprintf("%s  %-5s  %s  %s\n",
					entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), entry.Level, entry.Monitor, entry.Message))
			}
			return writeOutput(cmd, sb.String())
		}

		events, err := a.records.ListEvents(ctx, monitor, limit)
		if err != nil {
			return err
		}
		rendered, err := output.NewFormatter(format).FormatEvents(events)
		if err != nil {
			return err
		}
		return writeOutput(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().Uint("limit", 50, "maximum number of entries")
	eventsCmd.Flags().Bool("logs", false, "list recorded failures instead of events")
	eventsCmd.Flags().String("output-format", "table", "output format: table, json, yaml, markdown")
	eventsCmd.Flags().String("out", "", "write output to file (default stdout)")
}
