package middleware

import (
	"context"
	"net/http"
)

const (
	// ClientIPContextKey is the context key the resolved client IP is
	// stored under.
	ClientIPContextKey contextKey = "client_ip"
)

// WithClientIP resolves the client IP once, early in the chain, and
// stashes it in the context for the request logger and handlers.
//
// The proxy headers it trusts can be spoofed by a client that reaches
// the application directly, so in production the service must sit
// behind the reverse proxy that sets them.
func WithClientIP() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ClientIPContextKey, GetClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIPFromContext returns the IP stored by WithClientIP, or ""
// when the middleware did not run.
func GetClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPContextKey).(string); ok {
		return ip
	}
	return ""
}
