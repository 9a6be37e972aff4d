package verifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/core/resolver"
)

const (
	msgResolutionValid   = "Domain resolves correctly"
	msgResolutionInvalid = "Domain does not resolve"
	errResolution        = "Domain resolution failed"

	msgMXMissing = "No MX records found"
	msgMXError   = "Could not check MX records"
	errMXMissing = "MX records missing"
	errMXFailed  = "MX check failed"
)

// txtRule describes a TXT check that looks for a record starting with a tag.
type txtRule struct {
	name           core.CheckName
	prefix         string
	foundMessage   string
	missingMessage string
	missingProblem string
	errorMessage   string
	errorProblem   string
}

var spfRule = txtRule{
	name:           core.CheckSPF,
	prefix:         "v=spf1",
	foundMessage:   "SPF record found",
	missingMessage: "No SPF record found",
	missingProblem: "SPF record missing",
	errorMessage:   "Could not check SPF record",
	errorProblem:   "SPF check failed",
}

var dmarcRule = txtRule{
	name:           core.CheckDMARC,
	prefix:         "v=DMARC1",
	foundMessage:   "DMARC record found",
	missingMessage: "No DMARC record found",
	missingProblem: "DMARC record missing",
	errorMessage:   "Could not check DMARC record",
	errorProblem:   "DMARC check failed",
}

func (v *Verifier) checkResolution(ctx context.Context, domain string) checkResult {
	ips, err := v.Resolver.LookupA(ctx, domain)
	if err != nil || len(ips) == 0 {
		if err != nil {
			v.lookupFailed(core.CheckDomainResolution, domain, err)
		}
		return failed(core.StatusInvalid, msgResolutionInvalid, errResolution)
	}
	return found(&core.CheckOutcome{Status: core.StatusValid, Message: msgResolutionValid})
}

func (v *Verifier) checkSPF(ctx context.Context, domain string) checkResult {
	return v.checkTXT(ctx, spfRule, domain)
}

func (v *Verifier) checkDMARC(ctx context.Context, domain string) checkResult {
	return v.checkTXT(ctx, dmarcRule, "_dmarc."+domain)
}

// checkTXT takes the first record starting with the rule's prefix, in the
// order the resolver returned them.
func (v *Verifier) checkTXT(ctx context.Context, rule txtRule, name string) checkResult {
	records, err := v.Resolver.LookupTXT(ctx, name)
	if err != nil {
		v.lookupFailed(rule.name, name, err)
		return failed(core.StatusError, rule.errorMessage, rule.errorProblem)
	}
	for _, record := range records {
		if strings.HasPrefix(record, rule.prefix) {
			return found(&core.CheckOutcome{
				Status:  core.StatusFound,
				Record:  record,
				Message: rule.foundMessage,
			})
		}
	}
	return failed(core.StatusMissing, rule.missingMessage, rule.missingProblem)
}

func (v *Verifier) checkMX(ctx context.Context, domain string) checkResult {
	records, err := v.Resolver.LookupMX(ctx, domain)
	if err != nil {
		v.lookupFailed(core.CheckMX, domain, err)
		return failed(core.StatusError, msgMXError, errMXFailed)
	}
	if len(records) == 0 {
		return failed(core.StatusMissing, msgMXMissing, errMXMissing)
	}

	entries := make([]core.MXRecord, 0, len(records))
	for _, mx := range records {
		entries = append(entries, core.MXRecord{
			Priority: mx.Pref,
			Exchange: strings.TrimSuffix(mx.Host, "."),
		})
	}
	return found(&core.CheckOutcome{
		Status:  core.StatusFound,
		Records: entries,
		Message: fmt.Sprintf("%d MX record(s) found", len(entries)),
	})
}

func (v *Verifier) lookupFailed(check core.CheckName, name string, err error) {
	v.debug("DNS lookup failed",
		zap.String("check", string(check)),
		zap.String("name", name),
		zap.String("result", resolver.ResultLabel(err)),
		zap.Error(err))
}
