package metrics

import (
	"time"

	"github.com/jmail/domaincheck/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Verification metrics
	DomainChecksTotal     = "domain_checks_total"
	DomainReportsTotal    = "domain_reports_total"
	DomainReportDuration  = "domain_report_duration_ms"
	DNSLookupsTotal       = "dns_lookups_total"
	DNSLookupDuration     = "dns_lookup_duration_ms"
	OAuthExchangesTotal   = "oauth_exchanges_total"
	TokenStoreWritesTotal = "token_store_writes_total"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordCheckOutcome counts a single check result by check name and status.
func RecordCheckOutcome(check string, status string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		DomainChecksTotal,
		1,
		map[string]string{
			"check":  check,
			"status": status,
		},
	)
}

// RecordReport records a completed domain report and how many checks failed.
func RecordReport(failed int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	result := "clean"
	if failed > 0 {
		result = "issues"
	}
	_ = observability.TelemetrySystem.Counter(
		DomainReportsTotal,
		1,
		map[string]string{"result": result},
	)
	_ = observability.TelemetrySystem.Histogram(
		DomainReportDuration,
		duration,
		nil,
	)
}

// RecordDNSLookup records one DNS exchange.
func RecordDNSLookup(qtype string, result string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		DNSLookupsTotal,
		1,
		map[string]string{
			"type":   qtype,
			"result": result,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		DNSLookupDuration,
		duration,
		map[string]string{"type": qtype},
	)
}

// RecordOAuthExchange records the outcome of an authorization code exchange.
func RecordOAuthExchange(success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		OAuthExchangesTotal,
		1,
		map[string]string{"result": result},
	)
}

// RecordTokenWrite records a token store upsert against the given driver.
func RecordTokenWrite(driver string, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		TokenStoreWritesTotal,
		1,
		map[string]string{
			"driver": driver,
			"status": status,
		},
	)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
