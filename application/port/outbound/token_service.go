package outbound

import (
	"time"

	"github.com/authgreet/authgreet/domain/valueobject"
)

type TokenClaims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// TokenService issues and verifies both token kinds. Verify fails with an
// error matching domain/error.ErrInvalidToken for every failure cause.
type TokenService interface {
	IssueAccess(subjectID, email string) (string, error)
	IssueRefresh(subjectID string) (string, error)
	Verify(token string, kind valueobject.TokenKind) (*TokenClaims, error)
	AccessTTL() time.Duration
}
