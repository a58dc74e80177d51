package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// auditLog emits a structured audit log entry for a state-changing request.
func auditLog(r *http.Request, action string, resourceType string, resourceID string, detail ...any) {
	attrs := []any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", clientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}
	attrs = append(attrs, detail...)
	slog.Info("audit", attrs...)
}

// clientIP prefers the first X-Forwarded-For hop, then the connection address
// without its port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
