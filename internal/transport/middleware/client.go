package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/frahmantamala/training-identity/internal"
)

// ClientMetadata records the caller's address and user agent for audit
// entries. chi's RealIP must run first for proxied deployments.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		md := internal.RequestMetadata{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(internal.ContextWithRequestMetadata(r.Context(), md)))
	})
}

func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
