package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware adds CORS headers for exact allowed origins and answers
// preflight requests. Credentials are allowed so the refresh cookie travels.
func CORSMiddleware(allowedOrigins []string, exposedHeaders ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		allowed[o] = struct{}{}
	}
	expose := strings.Join(exposedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			_, originAllowed := allowed[origin]
			if origin != "" && originAllowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				if expose != "" {
					w.Header().Set("Access-Control-Expose-Headers", expose)
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if originAllowed {
					w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
					reqHeaders := r.Header.Get("Access-Control-Request-Headers")
					if reqHeaders == "" {
						reqHeaders = "Content-Type, Authorization"
					}
					w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
					w.Header().Set("Access-Control-Max-Age", "600")
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
