// Package resolver performs the DNS lookups used by the domain verifier.
//
// Every lookup is a single exchange with the first configured nameserver.
// Failed queries are not retried; callers decide how to treat failures.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"

	"github.com/jmail/domaincheck/internal/metrics"
)

// DefaultTimeout bounds a single DNS exchange when none is configured.
const DefaultTimeout = 5 * time.Second

// Resolver is the lookup surface the verifier depends on.
//
// A NOERROR answer without matching records yields an empty slice and a nil
// error. NXDOMAIN yields ErrNotFound.
type Resolver interface {
	LookupA(ctx context.Context, name string) ([]net.IP, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Config controls where and how queries are sent.
type Config struct {
	// Nameservers are host:port pairs. Only the first is queried.
	// Empty means the system resolv.conf, falling back to public resolvers.
	Nameservers []string

	// Timeout bounds one exchange. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DNSResolver implements Resolver on top of github.com/miekg/dns.
type DNSResolver struct {
	config     Config
	udp        *mdns.Client
	tcp        *mdns.Client
	resolvConf string
}

// New builds a resolver from cfg, filling defaults.
func New(cfg Config) *DNSResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	r := &DNSResolver{resolvConf: "/etc/resolv.conf"}
	if len(cfg.Nameservers) == 0 {
		cfg.Nameservers = systemNameservers(r.resolvConf)
	} else {
		cfg.Nameservers = normalizeNameservers(cfg.Nameservers)
	}
	r.config = cfg
	r.udp = &mdns.Client{Net: "udp", Timeout: cfg.Timeout}
	r.tcp = &mdns.Client{Net: "tcp", Timeout: cfg.Timeout}
	return r
}

// Config returns the effective configuration.
func (r *DNSResolver) Config() Config {
	return r.config
}

func systemNameservers(path string) []string {
	conf, err := mdns.ClientConfigFromFile(path)
	if err != nil || len(conf.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}

func normalizeNameservers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		out = append(out, s)
	}
	return out
}

func fqdn(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	name = mdns.Fqdn(name)
	if _, ok := mdns.IsDomainName(name); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// exchange sends one query. A truncated UDP answer is re-asked over TCP,
// which is the same query completed on the proper transport rather than a retry.
func (r *DNSResolver) exchange(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	qname, err := fqdn(name)
	if err != nil {
		return nil, err
	}
	if len(r.config.Nameservers) == 0 {
		return nil, fmt.Errorf("dns: no nameservers configured")
	}
	server := r.config.Nameservers[0]

	m := new(mdns.Msg)
	m.SetQuestion(qname, qtype)
	m.RecursionDesired = true
	m.SetEdns0(4096, false)

	resp, _, err := r.udp.ExchangeContext(ctx, m, server)
	if err == nil && resp != nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, m, server)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, qname)
		}
		return nil, fmt.Errorf("dns query %s %s: %w", mdns.TypeToString[qtype], qname, err)
	}

	switch resp.Rcode {
	case mdns.RcodeSuccess:
		return resp, nil
	case mdns.RcodeNameError:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, qname)
	case mdns.RcodeServerFailure:
		return nil, fmt.Errorf("%w: %s", ErrServFail, qname)
	case mdns.RcodeRefused:
		return nil, fmt.Errorf("%w: %s", ErrRefused, qname)
	default:
		return nil, fmt.Errorf("dns: unexpected rcode %s for %s", mdns.RcodeToString[resp.Rcode], qname)
	}
}

func (r *DNSResolver) observe(qtype string, started time.Time, err error) {
	metrics.RecordDNSLookup(qtype, ResultLabel(err), time.Since(started))
}

// LookupA returns the IPv4 addresses for name.
func (r *DNSResolver) LookupA(ctx context.Context, name string) (ips []net.IP, err error) {
	defer func(started time.Time) { r.observe("A", started, err) }(time.Now())

	resp, err := r.exchange(ctx, name, mdns.TypeA)
	if err != nil {
		return nil, err
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*mdns.A); ok {
			ips = append(ips, a.A)
		}
	}
	return ips, nil
}

// LookupTXT returns TXT records for name. Character strings of one record are
// concatenated without separators.
func (r *DNSResolver) LookupTXT(ctx context.Context, name string) (records []string, err error) {
	defer func(started time.Time) { r.observe("TXT", started, err) }(time.Now())

	resp, err := r.exchange(ctx, name, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	return records, nil
}

// LookupMX returns MX records for name in answer order.
func (r *DNSResolver) LookupMX(ctx context.Context, name string) (records []*net.MX, err error) {
	defer func(started time.Time) { r.observe("MX", started, err) }(time.Now())

	resp, err := r.exchange(ctx, name, mdns.TypeMX)
	if err != nil {
		return nil, err
	}
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*mdns.MX); ok {
			records = append(records, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	return records, nil
}
