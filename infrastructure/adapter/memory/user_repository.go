package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/authgreet/authgreet/application/port/outbound"
	"github.com/authgreet/authgreet/domain/entity"
)

// UserRepository keeps users in process memory. Email uniqueness is
// checked and claimed under one lock.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" || user.Email == "" || user.Password == "" {
		return fmt.Errorf("user ID, email, and password are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	email := entity.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return outbound.ErrUserAlreadyExists
	}
	if _, exists := r.byID[user.ID]; exists {
		return outbound.ErrUserAlreadyExists
	}

	stored := *user
	stored.Email = email
	r.byID[stored.ID] = &stored
	r.byEmail[email] = stored.ID
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	user := *r.byID[id]
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	user := *stored
	return &user, nil
}

func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
