package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmail/domaincheck/internal/core"
)

func sampleReport() *core.DomainCheckReport {
	return &core.DomainCheckReport{
		Domain:    "example.com",
		Timestamp: "2026-01-02T03:04:05.678Z",
		Checks: core.Checks{
			DomainResolution: &core.CheckOutcome{Status: core.StatusValid, Message: "Domain resolves correctly"},
			SPF: &core.CheckOutcome{
				Status:  core.StatusFound,
				Message: "SPF record found",
				Record:  "v=spf1 include:_spf.google.com ~all",
			},
			DMARC: &core.CheckOutcome{
				Status:  core.StatusFound,
				Message: "DMARC record found",
				Record:  "v=DMARC1; p=quarantine; pct=50; rua=mailto:dmarc@example.com",
			},
			MX: &core.CheckOutcome{
				Status:  core.StatusFound,
				Message: "1 MX record(s) found",
				Records: []core.MXRecord{{Priority: 10, Exchange: "mx.example.com"}},
			},
			DKIM: &core.CheckOutcome{
				Status:  core.StatusMissing,
				Message: "No DKIM records found for common selectors",
			},
		},
		Errors: []string{"DKIM records missing"},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":         FormatTable,
		"table":    FormatTable,
		"JSON":     FormatJSON,
		"yml":      FormatYAML,
		"yaml":     FormatYAML,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("csv")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatReport(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, rendered, "example.com")
	assert.Contains(t, rendered, "CHECK")
	assert.Contains(t, rendered, "domainResolution")
	assert.Contains(t, rendered, "10 mx.example.com")
	assert.Contains(t, rendered, "4/5 checks passed")
	assert.Contains(t, rendered, "- DKIM records missing")
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatReport(sampleReport())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, "## example.com email authentication"))
	assert.Contains(t, rendered, "| dkim | missing |")
	assert.Contains(t, rendered, "policy: quarantine, applied to 50%")
	assert.Contains(t, rendered, "### Problems")
}

func TestJSONFormatterMatchesAPIShape(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	checks, ok := decoded["checks"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"spf", "dkim", "dmarc", "mx", "domainResolution"}, keys(checks))
	assert.Equal(t, []any{"DKIM records missing"}, decoded["errors"])
}

func TestYAMLFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatYAML).FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, "example.com", decoded["domain"])
	assert.Contains(t, rendered, "domainResolution:")
	assert.Contains(t, rendered, "exchange: mx.example.com")
}

func TestFormatReportList(t *testing.T) {
	second := sampleReport()
	second.Domain = "example.org"
	reports := []*core.DomainCheckReport{sampleReport(), nil, second}

	rendered, err := FormatReportList(FormatJSON, reports)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "example.org", decoded[1]["domain"])

	rendered, err = FormatReportList(FormatMarkdown, reports)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(rendered, "email authentication"))
}

func TestDMARCPolicyNote(t *testing.T) {
	assert.Equal(t, "policy: reject", dmarcPolicyNote("v=DMARC1; p=reject"))
	assert.Equal(t, "policy: none (monitoring only)", dmarcPolicyNote("v=DMARC1; p=none"))
	assert.Equal(t, "policy: reject, subdomains: quarantine", dmarcPolicyNote("v=DMARC1; p=reject; sp=quarantine"))
	assert.Empty(t, dmarcPolicyNote("v=DMARC1; garbage"))
}

func TestNotRunChecks(t *testing.T) {
	rows := reportRows(&core.DomainCheckReport{Domain: "example.com"})
	require.Len(t, rows, len(core.CheckOrder))
	for _, r := range rows {
		assert.Equal(t, "not run", r.status)
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
