package outbound

import (
	"context"
	"errors"

	"github.com/authgreet/authgreet/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository is the Credential Store. Create must enforce email
// uniqueness atomically and report a lost race as ErrUserAlreadyExists.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
}
