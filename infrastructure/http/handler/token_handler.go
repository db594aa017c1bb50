package handler

import (
	"net/http"

	"github.com/authgreet/authgreet/application/port/inbound"
	"github.com/authgreet/authgreet/infrastructure/http/middleware"
	"github.com/authgreet/authgreet/infrastructure/http/response"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
)

type TokenHandler struct {
	sessionUseCase inbound.SessionUseCase
	logger         logger.Logger
}

func NewTokenHandler(sessionUseCase inbound.SessionUseCase, log logger.Logger) *TokenHandler {
	return &TokenHandler{
		sessionUseCase: sessionUseCase,
		logger:         log,
	}
}

// Validate is mounted behind RequireAuth; reaching it means the token is good.
func (h *TokenHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	data := map[string]interface{}{}
	if claims != nil {
		data["userId"] = claims.UserID
		data["expiresAt"] = claims.ExpiresAt.Unix()
	}
	response.Success(w, http.StatusOK, "Token is valid", data)
}

// Refresh reads the refresh token from its cookie only, never from the body.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessionUseCase.Refresh(r.Context(), inbound.RefreshRequest{
		RefreshToken: refreshTokenFromCookie(r),
	})
	if err != nil {
		appErr := response.FromError(w, err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "Refresh failed", err, nil)
		}
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed", tokenResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
	})
}

func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
}
