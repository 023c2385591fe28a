package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check [monitor...]",
	Short: "Run one check cycle",
	Long: `Run one check cycle for the named monitors, or for every configured
monitor when none are named. Pass --domain to check a domain that is not in
the config file.

Events are delivered to the configured sinks and state is saved, exactly as
the scheduler would. Use --dry-run to only report what would happen.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addCheckFlags(checkCmd)
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("domain", "", "check this domain instead of configured monitors")
	cmd.Flags().String("name", "", "monitor name for --domain (defaults to the domain)")
	cmd.Flags().String("type", string(core.CheckTypeRegistered), "flag to track for --domain: registered, available")
	cmd.Flags().Int("timeout", 5, "lookup timeout in seconds for --domain")
	cmd.Flags().Bool("changes-only", true, "emit only on change for --domain")
	cmd.Flags().String("transport", core.TransportWhois, "lookup transport for --domain: whois, rdap")
	cmd.Flags().Bool("debug", false, "log the parser result and computed flag")
	cmd.Flags().Bool("dry-run", false, "look up and decide without saving state or emitting")
	cmd.Flags().Bool("ephemeral", false, "keep state in memory instead of the store")
	cmd.Flags().String("output-format", "table", "output format: table, json, yaml, markdown")
	cmd.Flags().String("out", "", "write output to file (default stdout)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	ephemeral, err := cmd.Flags().GetBool("ephemeral")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{ephemeral: ephemeral, noSinks: dryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	monitors, err := checkTargets(cmd, args, a)
	if err != nil {
		return err
	}

	return runChecks(cmd, a.runner, monitors, dryRun, format)
}

// runChecks runs one cycle per monitor, renders every row, and returns the
// joined cycle errors so the exit code reflects their class.
func runChecks(cmd *cobra.Command, runner *engine.Runner, monitors []core.CheckConfiguration, dryRun bool, format output.Format) error {
	ctx := cmd.Context()
	run := runner.RunOnce
	if dryRun {
		run = runner.DryRun
	}

	rows := make([]output.CheckRow, 0, len(monitors))
	var errs []error
	for _, monitor := range monitors {
		row := output.CheckRow{Monitor: monitor.Name, Domain: monitor.Domain, Type: monitor.CheckType}

		result, err := run(ctx, monitor)
		if err != nil {
			errs = append(errs, err)
			row.Error = err.Error()
			observability.Logger().Debug("Check failed", zap.String("monitor", monitor.Name), zap.Error(err))
		} else {
			row.Result = result
		}
		rows = append(rows, row)
	}

	rendered, err := output.NewFormatter(format).FormatChecks(rows)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, rendered); err != nil {
		return err
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d checks failed: %w", len(errs), len(monitors), errors.Join(errs...))
	}
	return nil
}

func checkTargets(cmd *cobra.Command, args []string, a *app) ([]core.CheckConfiguration, error) {
	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return nil, err
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(domain) == "" {
		monitors, err := selectMonitors(a.cfg, args)
		if err != nil {
			return nil, err
		}
		if len(monitors) == 0 {
			return nil, errNoMonitors
		}
		if debug {
			for i := range monitors {
				monitors[i].Debug = true
			}
		}
		return monitors, nil
	}

	if len(args) > 0 {
		return nil, fmt.Errorf("--domain cannot be combined with monitor names")
	}

	overrides := map[string]any{
		core.OptionDomain: domain,
		core.OptionDebug:  debug,
	}
	for flag, option := range map[string]string{
		"name":         core.OptionName,
		"type":         core.OptionType,
		"timeout":      core.OptionTimeout,
		"changes-only": core.OptionChangesOnly,
		"transport":    core.OptionTransport,
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if f.Changed || flag != "name" {
			overrides[option] = f.Value.String()
		}
	}

	monitor, err := adHocMonitor(overrides)
	if err != nil {
		return nil, err
	}
	return []core.CheckConfiguration{monitor}, nil
}
