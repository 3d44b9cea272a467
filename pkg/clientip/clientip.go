// Package clientip resolves the caller address used as rate-limit key.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the host part of r.RemoteAddr. Behind a proxy the
// router's RealIP middleware has already rewritten RemoteAddr from
// X-Forwarded-For / X-Real-IP, so no header is consulted here.
func RealClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
