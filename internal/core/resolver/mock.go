package resolver

import (
	"context"
	"net"
	"slices"
	"strings"
	"sync"
)

// MockResolver answers lookups from in-memory tables. Keys are domain names
// without the trailing dot. A name missing from every table is NXDOMAIN; a
// name present in some table but not the queried one is NODATA.
type MockResolver struct {
	A   map[string][]string
	TXT map[string][]string
	MX  map[string][]*net.MX

	// Fail lists lookups that return ErrServFail, formatted "type name",
	// e.g. "txt example.com".
	Fail []string

	// Panic lists lookups that panic, in the same format as Fail.
	Panic []string

	mu      sync.Mutex
	queries []string
}

var _ Resolver = (*MockResolver)(nil)

func mockKey(qtype, name string) string {
	return qtype + " " + strings.TrimSuffix(strings.ToLower(name), ".")
}

// Queries returns the lookups made so far, in call order.
func (m *MockResolver) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queries)
}

func (m *MockResolver) begin(ctx context.Context, qtype, name string) (string, error) {
	key := mockKey(qtype, name)

	m.mu.Lock()
	m.queries = append(m.queries, key)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if slices.Contains(m.Panic, key) {
		panic("mock resolver: " + key)
	}
	if slices.Contains(m.Fail, key) {
		return "", ErrServFail
	}
	if _, err := fqdn(name); err != nil {
		return "", err
	}
	return strings.TrimPrefix(key, qtype+" "), nil
}

func (m *MockResolver) exists(name string) bool {
	if _, ok := m.A[name]; ok {
		return true
	}
	if _, ok := m.TXT[name]; ok {
		return true
	}
	_, ok := m.MX[name]
	return ok
}

// LookupA implements Resolver.
func (m *MockResolver) LookupA(ctx context.Context, name string) ([]net.IP, error) {
	key, err := m.begin(ctx, "a", name)
	if err != nil {
		return nil, err
	}
	if !m.exists(key) {
		return nil, ErrNotFound
	}
	var ips []net.IP
	for _, raw := range m.A[key] {
		if ip := net.ParseIP(raw); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}

// LookupTXT implements Resolver.
func (m *MockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	key, err := m.begin(ctx, "txt", name)
	if err != nil {
		return nil, err
	}
	if !m.exists(key) {
		return nil, ErrNotFound
	}
	return slices.Clone(m.TXT[key]), nil
}

// LookupMX implements Resolver.
func (m *MockResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	key, err := m.begin(ctx, "mx", name)
	if err != nil {
		return nil, err
	}
	if !m.exists(key) {
		return nil, ErrNotFound
	}
	return slices.Clone(m.MX[key]), nil
}
