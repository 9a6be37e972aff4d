package resolver

import (
	"errors"
	"net"
)

// Sentinel lookup errors. Wrapped errors still match via errors.Is.
var (
	ErrNotFound    = errors.New("dns: name not found")
	ErrServFail    = errors.New("dns: server failure")
	ErrRefused     = errors.New("dns: query refused")
	ErrTimeout     = errors.New("dns: query timed out")
	ErrInvalidName = errors.New("dns: invalid domain name")
)

// IsNotFound reports whether err is an NXDOMAIN failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a lookup timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ResultLabel classifies a lookup outcome for metrics labels.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "nxdomain"
	case IsTimeout(err):
		return "timeout"
	case errors.Is(err, ErrServFail):
		return "servfail"
	case errors.Is(err, ErrRefused):
		return "refused"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	default:
		return "error"
	}
}
