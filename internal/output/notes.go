package output

import (
	"fmt"
	"strings"

	"github.com/emersion/go-msgauth/dmarc"

	"github.com/jmail/domaincheck/internal/core"
)

// row is one rendered check.
type row struct {
	check  string
	status string
	notes  string
}

func reportRows(report *core.DomainCheckReport) []row {
	rows := make([]row, 0, len(core.CheckOrder))
	for _, name := range core.CheckOrder {
		outcome := report.Checks.Get(name)
		if outcome == nil {
			rows = append(rows, row{check: string(name), status: "not run"})
			continue
		}
		rows = append(rows, row{
			check:  string(name),
			status: statusLabel(outcome.Status),
			notes:  checkNotes(name, outcome),
		})
	}
	return rows
}

func statusLabel(status core.Status) string {
	if status.Succeeded() {
		return "ok (" + string(status) + ")"
	}
	return string(status)
}

func checkNotes(name core.CheckName, outcome *core.CheckOutcome) string {
	parts := []string{outcome.Message}

	switch name {
	case core.CheckMX:
		if records, ok := outcome.Records.([]core.MXRecord); ok {
			for _, mx := range records {
				parts = append(parts, fmt.Sprintf("%d %s", mx.Priority, mx.Exchange))
			}
		}
	case core.CheckDKIM:
		if outcome.Selector != "" {
			parts = append(parts, "selector: "+outcome.Selector)
		}
	case core.CheckDMARC:
		if outcome.Record != "" {
			parts = append(parts, outcome.Record)
			if note := dmarcPolicyNote(outcome.Record); note != "" {
				parts = append(parts, note)
			}
		}
	default:
		if outcome.Record != "" {
			parts = append(parts, outcome.Record)
		}
	}

	return strings.Join(nonEmpty(parts), "; ")
}

// dmarcPolicyNote summarises the policy a DMARC record publishes. Records
// that do not parse produce an empty note.
func dmarcPolicyNote(record string) string {
	rec, err := dmarc.Parse(record)
	if err != nil {
		return ""
	}

	note := "policy: " + string(rec.Policy)
	if rec.SubdomainPolicy != "" && rec.SubdomainPolicy != rec.Policy {
		note += ", subdomains: " + string(rec.SubdomainPolicy)
	}
	if rec.Percent != nil && *rec.Percent != 100 {
		note += fmt.Sprintf(", applied to %d%%", *rec.Percent)
	}
	if rec.Policy == dmarc.PolicyNone {
		note += " (monitoring only)"
	}
	return note
}

func summary(report *core.DomainCheckReport) string {
	total := len(core.CheckOrder)
	return fmt.Sprintf("%d/%d checks passed", total-report.FailedChecks(), total)
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
