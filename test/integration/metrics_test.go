package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/core/resolver"
	"github.com/jmail/domaincheck/internal/core/verifier"
	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/server"
)

// cleanupMetrics tears down global telemetry state so each test starts clean.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// isPermissionError normalizes OS-specific permission errors so we can skip
// when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	err := observability.InitMetrics(observability.MetricsOptions{Namespace: "test", Service: "test"})
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

// startZone serves a small authoritative zone for good.example and
// bare.example on loopback UDP.
func startZone(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback UDP unavailable: %v", err)
	}

	rr := func(s string) mdns.RR {
		r, err := mdns.NewRR(s)
		require.NoError(t, err)
		return r
	}

	handler := mdns.HandlerFunc(func(w mdns.ResponseWriter, req *mdns.Msg) {
		resp := new(mdns.Msg)
		resp.SetReply(req)
		q := req.Question[0]
		q.Name = strings.ToLower(q.Name)
		switch {
		case q.Name == "good.example." && q.Qtype == mdns.TypeA:
			resp.Answer = append(resp.Answer, rr("good.example. 60 IN A 192.0.2.20"))
		case q.Name == "good.example." && q.Qtype == mdns.TypeTXT:
			resp.Answer = append(resp.Answer, rr(`good.example. 60 IN TXT "v=spf1 mx -all"`))
		case q.Name == "good.example." && q.Qtype == mdns.TypeMX:
			resp.Answer = append(resp.Answer, rr("good.example. 60 IN MX 10 mx.good.example."))
		case q.Name == "_dmarc.good.example." && q.Qtype == mdns.TypeTXT:
			resp.Answer = append(resp.Answer, rr(`_dmarc.good.example. 60 IN TXT "v=DMARC1; p=reject"`))
		case q.Name == "google._domainkey.good.example." && q.Qtype == mdns.TypeTXT:
			resp.Answer = append(resp.Answer, rr(`google._domainkey.good.example. 60 IN TXT "v=DKIM1; k=rsa; p=MIGf"`))
		case q.Name == "bare.example." && q.Qtype == mdns.TypeA:
			resp.Answer = append(resp.Answer, rr("bare.example. 60 IN A 192.0.2.21"))
		case q.Name == "bare.example.":
			// NODATA
		default:
			resp.Rcode = mdns.RcodeNameError
		}
		_ = w.WriteMsg(resp)
	})

	started := make(chan struct{})
	srv := &mdns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns test server did not start")
	}
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

// newTestServer binds the API to IPv4 loopback and skips when the sandbox
// refuses to open sockets.
func newTestServer(t *testing.T, nameserver string) (*httptest.Server, *http.Client) {
	t.Helper()

	r := resolver.New(resolver.Config{Nameservers: []string{nameserver}, Timeout: 2 * time.Second})
	srv := server.New(config.ServerConfig{Host: "127.0.0.1", Environment: config.EnvTest}, server.Deps{
		Verifier: verifier.New(r, nil),
		Version:  "test",
	})

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func checkDomain(t *testing.T, client *http.Client, baseURL, domain string) (int, core.DomainCheckReport) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"domain": domain})
	require.NoError(t, err)

	resp, err := client.Post(baseURL+"/api/check-domain", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var report core.DomainCheckReport
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	}
	return resp.StatusCode, report
}

func TestCheckDomainOverRealDNS(t *testing.T) {
	observability.InitCLILogger("test", false)
	require.NoError(t, observability.InitServerLogger(observability.ServerLoggerOptions{
		Service: "test", Level: "info", Environment: config.EnvTest,
	}))

	ts, client := newTestServer(t, startZone(t))

	t.Run("FullyConfigured", func(t *testing.T) {
		code, report := checkDomain(t, client, ts.URL, "GOOD.example")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "GOOD.example", report.Domain)
		assert.Empty(t, report.Errors)
		require.NotNil(t, report.Checks.DKIM)
		assert.Equal(t, "google", report.Checks.DKIM.Selector)
		require.NotNil(t, report.Checks.MX)
		assert.Len(t, report.Checks.MX.Records, 1)
	})

	t.Run("NothingPublished", func(t *testing.T) {
		code, report := checkDomain(t, client, ts.URL, "bare.example")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []string{
			"SPF record missing",
			"DMARC record missing",
			"MX records missing",
			"DKIM records missing",
		}, report.Errors)
	})
}

func TestMetricsEndpoint_Integration(t *testing.T) {
	observability.InitCLILogger("test", false)
	require.NoError(t, observability.InitServerLogger(observability.ServerLoggerOptions{
		Service: "test", Level: "info", Environment: config.EnvTest,
	}))

	initMetricsOrSkip(t)

	ts, client := newTestServer(t, startZone(t))

	const numRequests = 24
	const numWorkers = 6

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for reqNum := range requestChan {
				var resp *http.Response
				var err error
				switch reqNum % 3 {
				case 0:
					resp, err = client.Post(ts.URL+"/api/check-domain", "application/json",
						strings.NewReader(`{"domain":"good.example"}`))
				case 1:
					resp, err = client.Post(ts.URL+"/api/check-domain", "application/json",
						strings.NewReader(`{}`))
				default:
					resp, err = client.Get(ts.URL + "/health")
				}
				if err == nil {
					_ = resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total")
	assert.Contains(t, metricsContent, "test_http_request_duration_ms")
	assert.Contains(t, metricsContent, "test_domain_checks_total")
	assert.Contains(t, metricsContent, "test_dns_lookups_total")
	assert.True(t, elapsed < 10*time.Second, "load should complete in reasonable time")
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	observability.InitCLILogger("test", false)
	require.NoError(t, observability.InitServerLogger(observability.ServerLoggerOptions{
		Service: "test", Level: "info", Environment: config.EnvTest,
	}))

	initMetricsOrSkip(t)

	ts, client := newTestServer(t, startZone(t))

	code, _ := checkDomain(t, client, ts.URL, "good.example")
	require.Equal(t, http.StatusOK, code)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t, strings.HasPrefix(contentType, "text/plain; version=0.0.4"),
		"Expected Prometheus content type, got: %s", contentType)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	metricLines := 0
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		assert.GreaterOrEqual(t, len(strings.Fields(line)), 2, "malformed metric line: %q", line)
		metricLines++
	}
	assert.Greater(t, metricLines, 0)
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger("test", false)
	require.NoError(t, observability.InitServerLogger(observability.ServerLoggerOptions{
		Service: "test", Level: "info", Environment: config.EnvTest,
	}))

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	ts, client := newTestServer(t, startZone(t))

	code, _ := checkDomain(t, client, ts.URL, "good.example")
	assert.Equal(t, http.StatusOK, code)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
