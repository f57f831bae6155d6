package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// defaultAllowMethods covers the verbs the API actually serves, PATCH
// included (order updates and menu availability use it).
const defaultAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// CORSConfig configures cross-origin access for browser clients such as the
// staff dashboard.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to call the API. Empty, or the
	// single entry "*", allows any origin.
	AllowOrigins []string

	// AllowMethods lists HTTP methods clients may use in actual requests.
	// Empty means defaultAllowMethods.
	AllowMethods []string

	// AllowHeaders lists request headers clients may send. When empty, the
	// preflight's Access-Control-Request-Headers is echoed back.
	AllowHeaders []string

	// ExposeHeaders lists response headers browsers may read.
	ExposeHeaders []string

	// AllowCredentials permits cookies and authorization headers on
	// cross-origin requests. Incompatible with the wildcard origin: when both
	// are set the middleware echoes the specific origin instead.
	AllowCredentials bool

	// MaxAge is how long (seconds) a preflight result may be cached.
	// Zero omits the header; a negative value sends "0".
	MaxAge int
}

// CORS handles cross-origin request and preflight headers. Origin matching is
// case-insensitive but the configured casing is echoed back, and Vary headers
// are set so shared caches never serve one origin's response to another.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	origins := make(map[string]string, len(cfg.AllowOrigins)) // lowercase -> configured
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
			break
		}
		origins[strings.ToLower(o)] = o
	}

	// Credentialed requests must name a concrete origin; browsers reject
	// Access-Control-Allow-Origin: * when credentials are in play.
	if cfg.AllowCredentials && allowAll {
		allowAll = false
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	if allowMethods == "" {
		allowMethods = defaultAllowMethods
	}
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	} else if cfg.MaxAge < 0 {
		maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Same-origin request. Still vary on Origin so a cache keyed
			// without it cannot later serve this response cross-origin.
			if origin == "" {
				if !allowAll {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin := resolveOrigin(origin, allowAll, origins)

			// Preflight: OPTIONS carrying Access-Control-Request-Method.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Origin")
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allowOrigin == "" {
					// Disallowed origin: 204 with no CORS headers, the
					// browser blocks the actual request.
					w.WriteHeader(http.StatusNoContent)
					return
				}

				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", allowMethods)

				if allowHeaders != "" {
					w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
					w.Header().Set("Access-Control-Allow-Headers", rh)
				}

				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if maxAge != "" {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}

				w.WriteHeader(http.StatusNoContent)
				return
			}

			// Actual cross-origin request.
			if !allowAll {
				w.Header().Add("Vary", "Origin")
			}

			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveOrigin picks the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not allowed.
func resolveOrigin(origin string, allowAll bool, origins map[string]string) string {
	if allowAll {
		return "*"
	}
	if configured, ok := origins[strings.ToLower(origin)]; ok {
		return configured
	}
	return ""
}
