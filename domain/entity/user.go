package entity

import (
	"strings"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUser(id, email, name, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:        id,
		Email:     NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
