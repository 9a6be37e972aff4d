package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/path", "example.com"},
		{"http://example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"example.com", "example.com"},
		{"example.com/a/b?c=d", "example.com"},
		{"https://mail.example.org/", "mail.example.org"},
		{"ftp://example.com", "ftp:"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{
		"https://www.example.com/path",
		"http://example.com",
		"www.example.com",
		"example.com",
	} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}
