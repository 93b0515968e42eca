package middleware

import (
	"net/http"
	"strings"

	"github.com/darkodi/url-diet/internal/config"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type"
	corsMaxAge       = "86400"
)

// CORS sets the cross-origin headers on every response, errors included.
// A request origin on the allow-list is echoed back; anything else gets
// the default origin.
func CORS(cfg config.CORSConfig) Middleware {
	exact := make(map[string]struct{}, len(cfg.AllowedOrigins))
	var suffixes []wildcardOrigin
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if w, ok := parseWildcard(o); ok {
			suffixes = append(suffixes, w)
			continue
		}
		exact[o] = struct{}{}
	}

	allowed := func(origin string) bool {
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, w := range suffixes {
			if w.matches(origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := cfg.DefaultOrigin
			if o := r.Header.Get("Origin"); o != "" && allowed(o) {
				origin = o
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			h.Add("Vary", "Origin")

			next.ServeHTTP(w, r)
		})
	}
}

// wildcardOrigin is an allow-list entry like "https://*.example.dev"
type wildcardOrigin struct {
	scheme string // "https://"
	suffix string // ".example.dev"
}

func parseWildcard(origin string) (wildcardOrigin, bool) {
	i := strings.Index(origin, "://*.")
	if i < 0 {
		return wildcardOrigin{}, false
	}
	return wildcardOrigin{
		scheme: origin[:i+3],
		suffix: origin[i+4:],
	}, true
}

func (w wildcardOrigin) matches(origin string) bool {
	if !strings.HasPrefix(origin, w.scheme) {
		return false
	}
	host := origin[len(w.scheme):]
	if !strings.HasSuffix(host, w.suffix) {
		return false
	}
	sub := host[:len(host)-len(w.suffix)]
	return sub != "" && !strings.ContainsAny(sub, "/:")
}
