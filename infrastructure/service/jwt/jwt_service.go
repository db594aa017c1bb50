package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/authgreet/authgreet/application/port/outbound"
	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/domain/valueobject"
	"github.com/authgreet/authgreet/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("jwt secret cannot be empty")
	ErrSameSecret    = errors.New("access and refresh secrets must differ")
)

type accessClaims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// refreshClaims carries no expiry; refresh tokens live until the
// secret rotates.
type refreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	issuer        string
	now           func() time.Time
}

func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, ErrSameSecret
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token TTL must be positive, got %s", cfg.AccessTokenTTL)
	}

	return &JWTService{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		issuer:        cfg.JWTIssuer,
		now:           time.Now,
	}, nil
}

func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *JWTService) IssueAccess(subjectID, email string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("subject id cannot be empty")
	}

	now := s.now().Truncate(time.Second)
	claims := accessClaims{
		Email: email,
		Type:  string(valueobject.AccessToken),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh sets iat explicitly at second precision and adds no jti, so
// two refresh tokens minted in the same second for one subject are equal.
func (s *JWTService) IssueRefresh(subjectID string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("subject id cannot be empty")
	}

	claims := refreshClaims{
		Type: string(valueobject.RefreshToken),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID,
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(s.now().Truncate(time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, structure, expiry and kind. Every failure is a
// *domainerr.TokenError.
func (s *JWTService) Verify(tokenString string, kind valueobject.TokenKind) (*outbound.TokenClaims, error) {
	if tokenString == "" {
		return nil, &domainerr.TokenError{Reason: domainerr.TokenMalformed}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	switch kind {
	case valueobject.AccessToken:
		parser := jwt.NewParser(append(opts, jwt.WithExpirationRequired())...)
		var claims accessClaims
		_, err := parser.ParseWithClaims(tokenString, &claims, s.keyFunc(s.accessSecret))
		if err != nil {
			return nil, classify(err)
		}
		if claims.Type != string(valueobject.AccessToken) || claims.Subject == "" {
			return nil, &domainerr.TokenError{Reason: domainerr.TokenMalformed}
		}
		return &outbound.TokenClaims{
			UserID:    claims.Subject,
			Email:     claims.Email,
			IssuedAt:  numericTime(claims.IssuedAt),
			ExpiresAt: numericTime(claims.ExpiresAt),
		}, nil

	case valueobject.RefreshToken:
		parser := jwt.NewParser(opts...)
		var claims refreshClaims
		_, err := parser.ParseWithClaims(tokenString, &claims, s.keyFunc(s.refreshSecret))
		if err != nil {
			return nil, classify(err)
		}
		if claims.Type != string(valueobject.RefreshToken) || claims.Subject == "" {
			return nil, &domainerr.TokenError{Reason: domainerr.TokenMalformed}
		}
		return &outbound.TokenClaims{
			UserID:   claims.Subject,
			IssuedAt: numericTime(claims.IssuedAt),
		}, nil
	}

	return nil, &domainerr.TokenError{Reason: domainerr.TokenMalformed}
}

func (s *JWTService) keyFunc(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &domainerr.TokenError{Reason: domainerr.TokenExpired, Cause: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &domainerr.TokenError{Reason: domainerr.TokenInvalidSignature, Cause: err}
	default:
		return &domainerr.TokenError{Reason: domainerr.TokenMalformed, Cause: err}
	}
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
