package output

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/namelens/domainwatch/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func (f *TableFormatter) FormatChecks(rows []CheckRow) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Monitor", "Domain", "Type", "Value", "Outcome"})

	emitted := 0
	for _, row := range rows {
		value, outcome := checkOutcome(row)
		if row.Result != nil && row.Result.Event != nil {
			emitted++
		}
		t.AppendRow(table.Row{row.Monitor, row.Domain, string(row.Type), value, outcome})
	}

	if len(rows) > 1 {
		t.AppendFooter(table.Row{"", "", "", "", strconv.Itoa(emitted) + "/" + strconv.Itoa(len(rows)) + " emitted"})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatStatuses(statuses []core.MonitorStatus) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Monitor", "Domain", "Type", "Registered", "Available", "Last Check", "Last Event", "Status"})

	for _, status := range statuses {
		t.AppendRow(table.Row{
			status.Config.Name,
			status.Config.Domain,
			string(status.Config.CheckType),
			stateLabel(status.State.LastRegistered),
			stateLabel(status.State.LastAvailable),
			timeLabel(status.Activity.LastCheckAt),
			timeLabel(status.Activity.LastEventAt),
			workingLabel(status.Working),
		})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatEvents(events []core.CheckEvent) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Time", "Monitor", "Domain", "Type", "Value"})

	for _, event := range events {
		t.AppendRow(table.Row{
			timeLabel(&event.CreatedAt),
			event.Monitor,
			event.Domain,
			string(event.CheckType),
			strconv.FormatBool(event.Value),
		})
	}
	return t.Render(), nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}
