package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/amorize/checkout-backend/internal/audit"
)

// ClientIP resolves the caller address, trusting proxy headers first.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ForensicFrom collects the request attributes recorded on audit entries.
func ForensicFrom(r *http.Request) audit.Forensic {
	if r == nil {
		return audit.Forensic{}
	}
	return audit.Forensic{
		IPAddress: ClientIP(r),
		UserAgent: strings.TrimSpace(r.UserAgent()),
		Origin:    strings.TrimSpace(r.Header.Get("Origin")),
	}
}
