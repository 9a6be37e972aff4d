// Package output renders domain check reports for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmail/domaincheck/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter renders one report.
type Formatter interface {
	FormatReport(report *core.DomainCheckReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(value)); normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case "yml", string(FormatYAML):
		return FormatYAML, nil
	case "md", string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatReportList renders several reports. JSON and YAML produce a single
// array document; the other formats join the per-report output.
func FormatReportList(format Format, reports []*core.DomainCheckReport) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(nonNil(reports), "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatYAML:
		data, err := yaml.Marshal(nonNil(reports))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	formatter := NewFormatter(format)
	rendered := make([]string, 0, len(reports))
	for _, report := range reports {
		if report == nil {
			continue
		}
		value, err := formatter.FormatReport(report)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		rendered = append(rendered, value)
	}
	return strings.Join(rendered, "\n\n"), nil
}

func nonNil(reports []*core.DomainCheckReport) []*core.DomainCheckReport {
	out := make([]*core.DomainCheckReport, 0, len(reports))
	for _, report := range reports {
		if report != nil {
			out = append(out, report)
		}
	}
	return out
}
