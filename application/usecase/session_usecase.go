package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authgreet/authgreet/application/port/inbound"
	"github.com/authgreet/authgreet/application/port/outbound"
	"github.com/authgreet/authgreet/domain/entity"
	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/domain/valueobject"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/google/uuid"
)

const signupMessage = "User registered successfully"

// SessionUseCase holds no per-user state; every call stands alone.
type SessionUseCase struct {
	userRepo        outbound.UserRepository
	tokenService    outbound.TokenService
	passwordService outbound.PasswordService
	logger          logger.Logger
	refreshTokenTTL time.Duration
}

func NewSessionUseCase(
	userRepo outbound.UserRepository,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	log logger.Logger,
	refreshTokenTTL time.Duration,
) *SessionUseCase {
	return &SessionUseCase{
		userRepo:        userRepo,
		tokenService:    tokenService,
		passwordService: passwordService,
		logger:          log.WithFields(map[string]interface{}{"component": "session_usecase"}),
		refreshTokenTTL: refreshTokenTTL,
	}
}

var _ inbound.SessionUseCase = (*SessionUseCase)(nil)

func (uc *SessionUseCase) Signup(ctx context.Context, req inbound.SignupRequest) (*inbound.SignupResponse, error) {
	registration, err := valueobject.NewRegistration(req.Email, req.Name, req.Password)
	if err != nil {
		return nil, err
	}

	existing, err := uc.userRepo.FindByEmail(ctx, registration.Email())
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		logger.LogAuthEvent(ctx, uc.logger, "signup_conflict", "", "", false, nil)
		return nil, domainerr.ErrConflict
	}

	hash, err := uc.passwordService.HashPassword(registration.Password())
	if err != nil {
		return nil, err
	}

	user := entity.NewUser(uuid.NewString(), registration.Email(), registration.Name(), hash)
	if err := uc.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			logger.LogAuthEvent(ctx, uc.logger, "signup_conflict", "", "", false, nil)
			return nil, domainerr.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "signup", user.ID, "", true, nil)
	return &inbound.SignupResponse{Message: signupMessage}, nil
}

func (uc *SessionUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	credentials, err := valueobject.NewCredentials(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := uc.userRepo.FindByEmail(ctx, credentials.Email())
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			uc.passwordService.SimulateVerify(credentials.Password())
			logger.LogAuthEvent(ctx, uc.logger, "login", "", "", false, map[string]interface{}{
				"reason": "unknown_email",
			})
			return nil, domainerr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	start := time.Now()
	ok, err := uc.passwordService.VerifyPassword(credentials.Password(), user.Password)
	logger.LogPerformance(ctx, uc.logger, "password_verify", time.Since(start), nil)
	if err != nil {
		uc.logger.Error(ctx, "Stored password hash is unusable", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, domainerr.ErrInvalidCredentials
	}
	if !ok {
		logger.LogAuthEvent(ctx, uc.logger, "login", user.ID, "", false, map[string]interface{}{
			"reason": "password_mismatch",
		})
		return nil, domainerr.ErrInvalidCredentials
	}

	// Rehashing needs the plaintext, which only exists here; the hint is
	// logged so operators can see how many accounts still sit on an old cost.
	if uc.passwordService.NeedsRehash(user.Password) {
		uc.logger.Info(ctx, "Password hash below configured cost", map[string]interface{}{
			"user_id": user.ID,
		})
	}

	pair, err := uc.issuePair(user)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "login", user.ID, "", true, nil)
	return &inbound.LoginResponse{
		Message:          "Login successful",
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresIn:        int(uc.tokenService.AccessTTL().Seconds()),
		RefreshExpiresIn: int(uc.refreshTokenTTL.Seconds()),
	}, nil
}

func (uc *SessionUseCase) issuePair(user *entity.User) (*valueobject.TokenPair, error) {
	access, err := uc.tokenService.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := uc.tokenService.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return valueobject.NewTokenPair(access, refresh), nil
}

// Logout has nothing to revoke server side; the transport drops the cookie.
func (uc *SessionUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) error {
	logger.LogAuthEvent(ctx, uc.logger, "logout", req.UserID, "", true, nil)
	return nil
}

// Refresh mints a new access token for the refresh token's subject. The
// refresh token itself is returned to the caller unchanged.
func (uc *SessionUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
	if req.RefreshToken == "" {
		return nil, domainerr.ErrInvalidRefreshToken
	}

	claims, err := uc.tokenService.Verify(req.RefreshToken, valueobject.RefreshToken)
	if err != nil {
		logger.LogSecurityEvent(ctx, uc.logger, "refresh_rejected", "MEDIUM", map[string]interface{}{
			"reason": domainerr.FailureReason(err),
		})
		return nil, domainerr.ErrInvalidRefreshToken
	}

	user, err := uc.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_unknown_subject", "MEDIUM", map[string]interface{}{
				"user_id": claims.UserID,
			})
			return nil, domainerr.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load refresh subject: %w", err)
	}

	access, err := uc.tokenService.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "refresh", user.ID, "", true, nil)
	return &inbound.RefreshResponse{
		AccessToken: access,
		ExpiresIn:   int(uc.tokenService.AccessTTL().Seconds()),
	}, nil
}

func (uc *SessionUseCase) Validate(ctx context.Context, accessToken string) (*outbound.TokenClaims, error) {
	claims, err := uc.tokenService.Verify(accessToken, valueobject.AccessToken)
	if err != nil {
		uc.logger.Debug(ctx, "Access token rejected", map[string]interface{}{
			"reason": domainerr.FailureReason(err),
		})
		return nil, domainerr.ErrInvalidToken
	}
	return claims, nil
}

func (uc *SessionUseCase) Me(ctx context.Context, userID string) (*inbound.MeResponse, error) {
	user, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, domainerr.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &inbound.MeResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}, nil
}
