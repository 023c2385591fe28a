package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/namelens/domainwatch/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatChecks(rows []CheckRow) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Monitor | Domain | Type | Value | Outcome |\n")
	sb.WriteString("|---------|--------|------|-------|---------|\n")

	for _, row := range rows {
		value, outcome := checkOutcome(row)
		writeMarkdownRow(&sb, row.Monitor, row.Domain, string(row.Type), value, outcome)
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatStatuses(statuses []core.MonitorStatus) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Monitor | Domain | Type | Registered | Available | Last Event | Status |\n")
	sb.WriteString("|---------|--------|------|------------|-----------|------------|--------|\n")

	for _, status := range statuses {
		writeMarkdownRow(&sb,
			status.Config.Name,
			status.Config.Domain,
			string(status.Config.CheckType),
			stateLabel(status.State.LastRegistered),
			stateLabel(status.State.LastAvailable),
			timeLabel(status.Activity.LastEventAt),
			workingLabel(status.Working),
		)
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatEvents(events []core.CheckEvent) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Time | Monitor | Domain | Type | Value |\n")
	sb.WriteString("|------|---------|--------|------|-------|\n")

	for _, event := range events {
		writeMarkdownRow(&sb,
			timeLabel(&event.CreatedAt),
			event.Monitor,
			event.Domain,
			string(event.CheckType),
			strconv.FormatBool(event.Value),
		)
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, cells ...string) {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = escapeMarkdownCell(cell)
	}
	sb.WriteString(fmt.Sprintf("| %s |\n", strings.Join(escaped, " | ")))
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
