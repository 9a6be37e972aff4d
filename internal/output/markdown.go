package output

import (
	"fmt"
	"strings"

	"github.com/jmail/domaincheck/internal/core"
)

// MarkdownFormatter renders a report as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders a report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.DomainCheckReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s email authentication\n\n", escapeMarkdownCell(report.Domain)))
	sb.WriteString("| Check | Status | Notes |\n")
	sb.WriteString("|-------|--------|-------|\n")
	for _, r := range reportRows(report) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(r.check),
			escapeMarkdownCell(r.status),
			escapeMarkdownCell(r.notes),
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Result**: %s (checked %s)\n", summary(report), report.Timestamp))
	if len(report.Errors) > 0 {
		sb.WriteString("\n### Problems\n\n")
		for _, problem := range report.Errors {
			sb.WriteString("- " + escapeMarkdownCell(problem) + "\n")
		}
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
