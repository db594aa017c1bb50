package middleware

import (
	"context"
	"net/http"

	"github.com/authgreet/authgreet/application/port/outbound"
	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/infrastructure/http/response"
	"github.com/authgreet/authgreet/infrastructure/http/validator"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
)

type authClaimsKey struct{}

// AccessValidator verifies a bearer access token.
type AccessValidator interface {
	Validate(ctx context.Context, accessToken string) (*outbound.TokenClaims, error)
}

type AuthMiddleware struct {
	validator AccessValidator
	logger    logger.Logger
}

func NewAuthMiddleware(v AccessValidator, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: v,
		logger:    log,
	}
}

// RequireAuth answers 401 with one uniform message for a missing, malformed,
// expired or wrongly signed token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := validator.BearerToken(r)
		if !ok {
			response.FromError(w, domainerr.ErrInvalidToken)
			return
		}

		claims, err := m.validator.Validate(r.Context(), token)
		if err != nil {
			m.logger.Debug(r.Context(), "Rejected bearer token", map[string]interface{}{
				"path":  r.URL.Path,
				"token": "[REDACTED]",
			})
			response.FromError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserClaims retrieves the verified claims placed by RequireAuth.
func GetUserClaims(ctx context.Context) *outbound.TokenClaims {
	if claims, ok := ctx.Value(authClaimsKey{}).(*outbound.TokenClaims); ok {
		return claims
	}
	return nil
}
