package handler

import (
	"net/http"

	"github.com/authgreet/authgreet/application/port/inbound"
	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/infrastructure/http/middleware"
	"github.com/authgreet/authgreet/infrastructure/http/response"
	"github.com/authgreet/authgreet/infrastructure/http/validator"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
)

type AuthHandler struct {
	sessionUseCase inbound.SessionUseCase
	cookies        CookieConfig
	logger         logger.Logger
}

func NewAuthHandler(sessionUseCase inbound.SessionUseCase, cookies CookieConfig, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		sessionUseCase: sessionUseCase,
		cookies:        cookies,
		logger:         log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req inbound.SignupRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.sessionUseCase.Signup(r.Context(), req)
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}

	response.Success(w, http.StatusCreated, res.Message, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.sessionUseCase.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	h.cookies.set(w, res.RefreshToken, res.RefreshExpiresIn)
	response.Success(w, http.StatusOK, res.Message, tokenResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		response.FromError(w, domainerr.ErrInvalidToken)
		return
	}

	if err := h.sessionUseCase.Logout(r.Context(), inbound.LogoutRequest{UserID: claims.UserID}); err != nil {
		h.fail(w, r, "logout", err)
		return
	}

	h.cookies.clear(w)
	response.Success(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		response.FromError(w, domainerr.ErrInvalidToken)
		return
	}

	me, err := h.sessionUseCase.Me(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	response.Success(w, http.StatusOK, "success", me)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	appErr := response.FromError(w, err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Request failed", err, map[string]interface{}{"operation": op})
	}
}
