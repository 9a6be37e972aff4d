package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem receives every counter, histogram and gauge the service
	// emits. Nil means metrics are disabled and emitters are no-ops.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint for TelemetrySystem.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// MetricsOptions configures the Prometheus exporter.
type MetricsOptions struct {
	// Namespace prefixes every metric name. Empty falls back to Service.
	Namespace string
	Service   string
	// Port is the exporter listen port; 0 picks a free one.
	Port int
}

// InitMetrics starts the Prometheus exporter and installs TelemetrySystem.
func InitMetrics(opts MetricsOptions) error {
	if opts.Port < 0 {
		opts.Port = 0
	}
	metricsPort = opts.Port

	namespace := opts.Namespace
	if namespace == "" {
		namespace = opts.Service
	}

	exporter := exporters.NewPrometheusExporter(namespace, fmt.Sprintf(":%d", opts.Port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}
	PrometheusExporter = exporter

	if actual, err := portOf(exporter.GetAddr()); err == nil {
		metricsPort = actual
	} else if opts.Port == 0 {
		metricsPort = 9090
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: exporter,
	})
	if err != nil {
		return fmt.Errorf("create telemetry system: %w", err)
	}
	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the Prometheus exporter is listening on.
func GetMetricsPort() int {
	return metricsPort
}

func portOf(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
