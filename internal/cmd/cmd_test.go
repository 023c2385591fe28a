package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/output"
)

func testConfig() *config.Config {
	return &config.Config{
		Monitors: []map[string]any{
			{"name": "acme", "domain": "acme.com"},
			{"name": "spare", "domain": "spare.io", "type": "available", "transport": "rdap"},
		},
	}
}

func newCheckCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "check"}
	addCheckFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestSelectMonitors(t *testing.T) {
	cfg := testConfig()

	t.Run("all when no names", func(t *testing.T) {
		monitors, err := selectMonitors(cfg, nil)
		require.NoError(t, err)
		require.Len(t, monitors, 2)
		assert.Equal(t, core.CheckTypeRegistered, monitors[0].CheckType)
		assert.Equal(t, core.TransportWhois, monitors[0].Transport)
	})

	t.Run("named subset in order", func(t *testing.T) {
		monitors, err := selectMonitors(cfg, []string{"spare"})
		require.NoError(t, err)
		require.Len(t, monitors, 1)
		assert.Equal(t, "spare.io", monitors[0].Domain)
		assert.Equal(t, core.CheckTypeAvailable, monitors[0].CheckType)
	})

	t.Run("unknown names reported", func(t *testing.T) {
		_, err := selectMonitors(cfg, []string{"acme", "ghost", "other"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost, other")
	})
}

func TestAdHocMonitorDefaults(t *testing.T) {
	monitor, err := adHocMonitor(map[string]any{core.OptionDomain: "example.org"})
	require.NoError(t, err)
	assert.Equal(t, "example.org", monitor.Name)
	assert.Equal(t, core.CheckTypeRegistered, monitor.CheckType)
	assert.True(t, monitor.ChangesOnly)
}

func TestCheckTargets(t *testing.T) {
	a := &app{cfg: testConfig()}

	t.Run("configured monitors", func(t *testing.T) {
		monitors, err := checkTargets(newCheckCommand(t, "--debug"), []string{"acme"}, a)
		require.NoError(t, err)
		require.Len(t, monitors, 1)
		assert.True(t, monitors[0].Debug)
	})

	t.Run("ad hoc domain", func(t *testing.T) {
		cmd := newCheckCommand(t, "--domain", "Example.COM", "--type", "available", "--timeout", "9", "--transport", "rdap")
		monitors, err := checkTargets(cmd, nil, a)
		require.NoError(t, err)
		require.Len(t, monitors, 1)

		monitor := monitors[0]
		assert.Equal(t, core.CheckTypeAvailable, monitor.CheckType)
		assert.Equal(t, 9, monitor.TimeoutSeconds)
		assert.Equal(t, core.TransportRDAP, monitor.Transport)
		assert.Equal(t, monitor.Domain, monitor.Name)
	})

	t.Run("ad hoc name", func(t *testing.T) {
		cmd := newCheckCommand(t, "--domain", "example.com", "--name", "primary")
		monitors, err := checkTargets(cmd, nil, a)
		require.NoError(t, err)
		assert.Equal(t, "primary", monitors[0].Name)
	})

	t.Run("domain with names rejected", func(t *testing.T) {
		_, err := checkTargets(newCheckCommand(t, "--domain", "example.com"), []string{"acme"}, a)
		require.Error(t, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		_, err := checkTargets(newCheckCommand(t, "--domain", "example.com", "--timeout", "0"), nil, a)
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("no monitors", func(t *testing.T) {
		_, err := checkTargets(newCheckCommand(t), nil, &app{cfg: &config.Config{}})
		require.ErrorIs(t, err, errNoMonitors)
	})
}

func TestResolveOutputFormat(t *testing.T) {
	format, err := resolveOutputFormat(newCheckCommand(t, "--output-format", "yml"))
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, format)

	_, err = resolveOutputFormat(newCheckCommand(t, "--output-format", "xml"))
	require.Error(t, err)
}

func TestWriteOutputToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	cmd := newCheckCommand(t, "--out", path)

	require.NoError(t, writeOutput(cmd, "rendered"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rendered\n", string(data))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://***@db:5432/watch", redactURL("postgres://user:secret@db:5432/watch"))
	assert.Equal(t, "libsql://db.turso.io", redactURL("libsql://db.turso.io"))
}
