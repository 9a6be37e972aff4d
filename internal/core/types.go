package core

import "time"

// CheckName identifies one of the fixed checks in a domain report.
type CheckName string

const (
	CheckDomainResolution CheckName = "domainResolution"
	CheckSPF              CheckName = "spf"
	CheckDMARC            CheckName = "dmarc"
	CheckMX               CheckName = "mx"
	CheckDKIM             CheckName = "dkim"
)

// CheckOrder is the order checks run in and contribute errors in.
var CheckOrder = []CheckName{
	CheckDomainResolution,
	CheckSPF,
	CheckDMARC,
	CheckMX,
	CheckDKIM,
}

// Status is the outcome state of a single check.
type Status string

const (
	StatusFound   Status = "found"
	StatusMissing Status = "missing"
	StatusError   Status = "error"
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// Succeeded reports whether the status counts as a passing check.
func (s Status) Succeeded() bool {
	return s == StatusFound || s == StatusValid
}

// MXRecord is a single mail exchanger entry.
type MXRecord struct {
	Priority uint16 `json:"priority" yaml:"priority"`
	Exchange string `json:"exchange" yaml:"exchange"`
}

// CheckOutcome is the result of one check.
//
// Records holds either []string or []MXRecord depending on the check.
type CheckOutcome struct {
	Status   Status `json:"status" yaml:"status"`
	Message  string `json:"message" yaml:"message"`
	Record   string `json:"record,omitempty" yaml:"record,omitempty"`
	Records  any    `json:"records,omitempty" yaml:"records,omitempty"`
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
}

// Checks holds the outcome of every check under its fixed key.
// A nil pointer means the check never ran.
type Checks struct {
	SPF              *CheckOutcome `json:"spf" yaml:"spf"`
	DKIM             *CheckOutcome `json:"dkim" yaml:"dkim"`
	DMARC            *CheckOutcome `json:"dmarc" yaml:"dmarc"`
	MX               *CheckOutcome `json:"mx" yaml:"mx"`
	DomainResolution *CheckOutcome `json:"domainResolution" yaml:"domainResolution"`
}

// Get returns the outcome stored under name.
func (c *Checks) Get(name CheckName) *CheckOutcome {
	if c == nil {
		return nil
	}
	switch name {
	case CheckSPF:
		return c.SPF
	case CheckDKIM:
		return c.DKIM
	case CheckDMARC:
		return c.DMARC
	case CheckMX:
		return c.MX
	case CheckDomainResolution:
		return c.DomainResolution
	default:
		return nil
	}
}

// Set stores outcome under name. Unknown names are ignored.
func (c *Checks) Set(name CheckName, outcome *CheckOutcome) {
	if c == nil {
		return
	}
	switch name {
	case CheckSPF:
		c.SPF = outcome
	case CheckDKIM:
		c.DKIM = outcome
	case CheckDMARC:
		c.DMARC = outcome
	case CheckMX:
		c.MX = outcome
	case CheckDomainResolution:
		c.DomainResolution = outcome
	}
}

// DomainCheckReport aggregates every check run against one domain.
type DomainCheckReport struct {
	Domain    string   `json:"domain" yaml:"domain"`
	Timestamp string   `json:"timestamp" yaml:"timestamp"`
	Checks    Checks   `json:"checks" yaml:"checks"`
	Errors    []string `json:"errors" yaml:"errors"`
}

// FailedChecks counts outcomes that did not succeed.
func (r *DomainCheckReport) FailedChecks() int {
	if r == nil {
		return 0
	}
	failed := 0
	for _, name := range CheckOrder {
		outcome := r.Checks.Get(name)
		if outcome != nil && !outcome.Status.Succeeded() {
			failed++
		}
	}
	return failed
}

// TimestampLayout matches the ISO-8601 form produced by JavaScript's toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t as an ISO-8601 UTC timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
