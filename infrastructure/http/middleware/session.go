package middleware

import (
	"net/http"

	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/google/uuid"
)

const DefaultSessionIDHeader = "X-Session-ID"

// SessionIDMiddleware makes sure every request and response carries a
// session ID and stores it in the request context for logging.
func SessionIDMiddleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultSessionIDHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := r.Header.Get(header)
			if sid == "" || len(sid) > 128 {
				sid = uuid.NewString()
			}
			w.Header().Set(header, sid)

			ctx := logger.ContextWithSessionID(r.Context(), sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
