package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/authgreet/authgreet/application/port/outbound"
	"github.com/authgreet/authgreet/domain/entity"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type UserRepositoryAdapter struct {
	db *sql.DB
}

func NewUserRepositoryAdapter(db *sql.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{
		db: db,
	}
}

func (r *UserRepositoryAdapter) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
		LIMIT 1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, entity.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		// A non-UUID id can never match a row.
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// Create relies on the users_email_key unique index so that two concurrent
// signups for one email cannot both succeed.
func (r *UserRepositoryAdapter) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if user.ID == "" || user.Email == "" || user.Password == "" {
		return fmt.Errorf("user ID, email, and password are required")
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		entity.NormalizeEmail(user.Email),
		user.Name,
		user.Password,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func scanUser(row *sql.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
