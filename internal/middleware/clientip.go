package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/darkodi/url-diet/internal/ratelimit"
)

// ClientIP extracts the client address used for rate limiting and
// analytics. The trusted proxy header wins, then the connection's remote
// address. Requests with neither share the unknown bucket.
func ClientIP(r *http.Request, header string) string {
	if header != "" {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			// Take the first IP in a forwarded list
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = strings.TrimSpace(v[:i])
			}
			if v != "" {
				return v
			}
		}
	}

	// Fall back to RemoteAddr, port removed
	if r.RemoteAddr == "" {
		return ratelimit.UnknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if host == "" {
		return ratelimit.UnknownClient
	}
	return host
}
