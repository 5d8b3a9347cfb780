package server

import (
	"crypto/tls"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	trusted := newProxyMatcher([]string{"10.0.0.0/8", "192.168.1.1", "bogus"}, slog.Default())

	tests := []struct {
		name    string
		remote  string
		forward string
		want    string
	}{
		{"direct", "203.0.113.5:4000", "", "203.0.113.5"},
		{"untrusted peer ignores header", "203.0.113.5:4000", "198.51.100.1", "203.0.113.5"},
		{"trusted proxy", "10.1.2.3:80", "198.51.100.1", "198.51.100.1"},
		{"skips trusted hops", "192.168.1.1:80", "198.51.100.1, 10.0.0.9", "198.51.100.1"},
		{"all trusted", "10.1.2.3:80", "10.0.0.7", "10.1.2.3"},
		{"ipv6", "[2001:db8::1]:443", "", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forward != "" {
				r.Header.Set("X-Forwarded-For", tt.forward)
			}
			if got := clientIP(r, trusted); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestSecure(t *testing.T) {
	trusted := newProxyMatcher([]string{"10.0.0.1"}, slog.Default())

	r := httptest.NewRequest("GET", "/", nil)
	r.TLS = &tls.ConnectionState{}
	if !requestSecure(r, nil) {
		t.Error("TLS request not secure")
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-Proto", "https")
	if !requestSecure(r, trusted) {
		t.Error("trusted forwarded https not secure")
	}

	r.RemoteAddr = "203.0.113.9:1234"
	if requestSecure(r, trusted) {
		t.Error("untrusted forwarded header believed")
	}

	if newProxyMatcher(nil, slog.Default()) != nil {
		t.Error("empty matcher should be nil")
	}
}
