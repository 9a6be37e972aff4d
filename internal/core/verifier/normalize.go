package verifier

import "strings"

// Normalize reduces raw user input to a bare host: it strips a leading
// "http://" or "https://", then a leading "www.", then drops everything from
// the first "/". The result is not validated.
func Normalize(raw string) string {
	host := raw
	switch {
	case strings.HasPrefix(host, "https://"):
		host = host[len("https://"):]
	case strings.HasPrefix(host, "http://"):
		host = host[len("http://"):]
	}
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return host
}
