package http

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP for audit logging. Proxy headers are taken
// at face value here — the value is informational, never used for access
// decisions.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// Origin returns the request's Origin header, used to build the OAuth
// redirect URL the same way the issuing page saw it.
func Origin(r *http.Request) string {
	return r.Header.Get("Origin")
}
