package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authgreet/authgreet/application/port/outbound"
	"github.com/authgreet/authgreet/domain/entity"
	"github.com/go-redis/redis/v8"
)

// createScript claims the email index and writes the record in one step.
// KEYS[1] email index, KEYS[2] user record; ARGV[1] id, ARGV[2] payload.
const createScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2])
return 1
`

const defaultPrefix = "authgreet"

// userRecord is the stored shape; entity.User hides the hash from JSON.
type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRepository struct {
	client *redis.Client
	prefix string
	script *redis.Script
}

func NewUserRepository(client *redis.Client, prefix string) *UserRepository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &UserRepository{
		client: client,
		prefix: prefix,
		script: redis.NewScript(createScript),
	}
}

// NewClient parses a redis:// URL and checks connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *UserRepository) userKey(id string) string {
	return r.prefix + ":user:" + id
}

func (r *UserRepository) emailKey(email string) string {
	return r.prefix + ":email:" + email
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" || user.Email == "" || user.Password == "" {
		return fmt.Errorf("user ID, email, and password are required")
	}

	email := entity.NormalizeEmail(user.Email)
	payload, err := json.Marshal(userRecord{
		ID:           user.ID,
		Email:        email,
		Name:         user.Name,
		PasswordHash: user.Password,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	created, err := r.script.Run(ctx, r.client,
		[]string{r.emailKey(email), r.userKey(user.ID)},
		user.ID, string(payload),
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if created == 0 {
		return outbound.ErrUserAlreadyExists
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	id, err := r.client.Get(ctx, r.emailKey(entity.NormalizeEmail(email))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	raw, err := r.client.Get(ctx, r.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}

	return &entity.User{
		ID:        rec.ID,
		Email:     rec.Email,
		Name:      rec.Name,
		Password:  rec.PasswordHash,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
