package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jmail/domaincheck/internal/core"
)

// TableFormatter renders a report as a table with one row per check.
type TableFormatter struct{}

// FormatReport renders a report as a table.
func (f *TableFormatter) FormatReport(report *core.DomainCheckReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(report.Domain)
	t.AppendHeader(table.Row{"Check", "Status", "Notes"})
	for _, r := range reportRows(report) {
		t.AppendRow(table.Row{r.check, r.status, r.notes})
	}
	t.AppendFooter(table.Row{"", summary(report), report.Timestamp})

	var sb strings.Builder
	sb.WriteString(t.Render())
	if len(report.Errors) > 0 {
		sb.WriteString("\n\nProblems:\n")
		for _, problem := range report.Errors {
			sb.WriteString("  - " + problem + "\n")
		}
	}
	return sb.String(), nil
}
