package inbound

import (
	"context"

	"github.com/authgreet/authgreet/application/port/outbound"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message          string `json:"message"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"-"`
	ExpiresIn        int    `json:"expiresIn"`
	RefreshExpiresIn int    `json:"-"` // cookie max-age, seconds
}

type RefreshRequest struct {
	RefreshToken string `json:"-"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type LogoutRequest struct {
	UserID string `json:"-"`
}

type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SessionUseCase is the stateless Session Orchestrator.
type SessionUseCase interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, req LogoutRequest) error
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Validate(ctx context.Context, accessToken string) (*outbound.TokenClaims, error)
	Me(ctx context.Context, userID string) (*MeResponse, error)
}
