// Package verifier checks a domain's email-authentication DNS records and
// aggregates the results into a core.DomainCheckReport.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/core/resolver"
	"github.com/jmail/domaincheck/internal/metrics"
)

// DefaultDKIMSelectors are probed in order; the first selector publishing a
// DKIM key wins.
var DefaultDKIMSelectors = []string{"default", "mail", "google", "k1", "selector1", "selector2"}

// Verifier runs the fixed set of domain checks.
type Verifier struct {
	Resolver resolver.Resolver
	// Selectors overrides DefaultDKIMSelectors when non-empty.
	Selectors []string
	Clock     func() time.Time
	Logger    *logging.Logger
}

// New returns a Verifier using r for lookups.
func New(r resolver.Resolver, logger *logging.Logger) *Verifier {
	return &Verifier{Resolver: r, Logger: logger}
}

// checkResult is one check's outcome plus the error line it contributes.
type checkResult struct {
	outcome *core.CheckOutcome
	problem string
}

func found(outcome *core.CheckOutcome) checkResult {
	return checkResult{outcome: outcome}
}

func failed(status core.Status, message, problem string) checkResult {
	return checkResult{
		outcome: &core.CheckOutcome{Status: status, Message: message},
		problem: problem,
	}
}

type check struct {
	name  core.CheckName
	run   func(ctx context.Context, domain string) checkResult
	fault checkResult
}

func (v *Verifier) checks() []check {
	return []check{
		{
			name:  core.CheckDomainResolution,
			run:   v.checkResolution,
			fault: failed(core.StatusInvalid, msgResolutionInvalid, errResolution),
		},
		{
			name:  core.CheckSPF,
			run:   v.checkSPF,
			fault: failed(core.StatusError, spfRule.errorMessage, spfRule.errorProblem),
		},
		{
			name:  core.CheckDMARC,
			run:   v.checkDMARC,
			fault: failed(core.StatusError, dmarcRule.errorMessage, dmarcRule.errorProblem),
		},
		{
			name:  core.CheckMX,
			run:   v.checkMX,
			fault: failed(core.StatusError, msgMXError, errMXFailed),
		},
		{
			name:  core.CheckDKIM,
			run:   v.checkDKIM,
			fault: failed(core.StatusError, msgDKIMError, errDKIMFailed),
		},
	}
}

// Check normalizes rawDomain and runs every check against it. Checks run
// concurrently and never cancel one another; results are merged in the fixed
// order resolution, SPF, DMARC, MX, DKIM.
func (v *Verifier) Check(ctx context.Context, rawDomain string) (*core.DomainCheckReport, error) {
	if v == nil || v.Resolver == nil {
		return nil, errors.New("verifier is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	domain := Normalize(rawDomain)
	report := &core.DomainCheckReport{
		Domain:    domain,
		Timestamp: core.FormatTimestamp(v.now()),
		Errors:    []string{},
	}

	checks := v.checks()
	results := make([]checkResult, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			results[i] = v.runGuarded(ctx, c, domain)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range checks {
		res := results[i]
		report.Checks.Set(c.name, res.outcome)
		if res.problem != "" {
			report.Errors = append(report.Errors, res.problem)
		}
		metrics.RecordCheckOutcome(string(c.name), string(res.outcome.Status))
		v.debug("Domain check completed",
			zap.String("domain", domain),
			zap.String("check", string(c.name)),
			zap.String("status", string(res.outcome.Status)))
	}

	metrics.RecordReport(len(report.Errors), time.Since(started))
	if len(report.Errors) > 0 {
		v.info("Domain check found problems",
			zap.String("domain", domain),
			zap.Strings("errors", report.Errors))
	}

	return report, nil
}

// runGuarded converts a panic inside a check into that check's failure outcome.
func (v *Verifier) runGuarded(ctx context.Context, c check, domain string) (res checkResult) {
	defer func() {
		if r := recover(); r != nil {
			v.warn("Domain check aborted",
				zap.String("domain", domain),
				zap.String("check", string(c.name)),
				zap.String("panic", fmt.Sprint(r)))
			res = c.fault
		}
	}()
	return c.run(ctx, domain)
}

func (v *Verifier) selectors() []string {
	if len(v.Selectors) > 0 {
		return v.Selectors
	}
	return DefaultDKIMSelectors
}

func (v *Verifier) now() time.Time {
	if v != nil && v.Clock != nil {
		return v.Clock()
	}
	return time.Now().UTC()
}

func (v *Verifier) debug(msg string, fields ...zap.Field) {
	if v.Logger != nil {
		v.Logger.Debug(msg, fields...)
	}
}

func (v *Verifier) info(msg string, fields ...zap.Field) {
	if v.Logger != nil {
		v.Logger.Info(msg, fields...)
	}
}

func (v *Verifier) warn(msg string, fields ...zap.Field) {
	if v.Logger != nil {
		v.Logger.Warn(msg, fields...)
	}
}
