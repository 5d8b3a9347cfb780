package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// proxyMatcher reports whether a peer is a trusted reverse proxy.
type proxyMatcher struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	ips := make(map[string]struct{})
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			logger.Warn("invalid trusted proxy IP", "entry", entry)
			continue
		}
		ips[ip.String()] = struct{}{}
	}
	if len(ips) == 0 && len(nets) == 0 {
		return nil
	}
	return &proxyMatcher{ips: ips, nets: nets}
}

func (m *proxyMatcher) IsTrusted(ip net.IP) bool {
	if m == nil || ip == nil {
		return false
	}
	if _, ok := m.ips[ip.String()]; ok {
		return true
	}
	for _, network := range m.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) net.IP {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}

// clientIP returns the peer address, or the nearest untrusted hop of
// X-Forwarded-For when the peer is a trusted proxy.
func clientIP(r *http.Request, trusted *proxyMatcher) string {
	peer := remoteIP(r)
	if peer == nil {
		return ""
	}
	if !trusted.IsTrusted(peer) {
		return peer.String()
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip != nil && !trusted.IsTrusted(ip) {
			return ip.String()
		}
	}
	return peer.String()
}

// requestSecure reports whether r arrived over TLS, believing
// X-Forwarded-Proto only from trusted proxies.
func requestSecure(r *http.Request, trusted *proxyMatcher) bool {
	if r.TLS != nil {
		return true
	}
	if !trusted.IsTrusted(remoteIP(r)) {
		return false
	}
	proto := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])
	return strings.EqualFold(proto, "https")
}
