package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/jmail/domaincheck/internal/core"
)

// JSONFormatter renders the report exactly as the HTTP endpoint returns it.
type JSONFormatter struct {
	Indent bool
}

// FormatReport renders a report as JSON.
func (f *JSONFormatter) FormatReport(report *core.DomainCheckReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// YAMLFormatter renders a report as YAML using the JSON key names.
type YAMLFormatter struct{}

// FormatReport renders a report as YAML.
func (f *YAMLFormatter) FormatReport(report *core.DomainCheckReport) (string, error) {
	if report == nil {
		return "", nil
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
