package valueobject

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/authgreet/authgreet/domain/entity"
	domainerr "github.com/authgreet/authgreet/domain/error"
)

const (
	MinNameLength     = 3
	MinPasswordLength = 8

	// bcrypt reads at most 72 bytes of password+pepper. The pepper is capped
	// so every password the policy accepts still fits.
	MaxPepperLength   = 32
	MaxPasswordLength = 72 - MaxPepperLength
	// PasswordSymbols is the fixed set a password must draw at least one symbol from.
	PasswordSymbols = "@$!%*#_?&"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	passwordRegex = regexp.MustCompile(`^[A-Za-z\d@$!%*#_?&]+$`)
	letterRegex   = regexp.MustCompile(`[A-Za-z]`)
	digitRegex    = regexp.MustCompile(`\d`)
	symbolRegex   = regexp.MustCompile(`[@$!%*#_?&]`)
)

// Credentials is a validated email/password pair used for login.
type Credentials struct {
	email    string
	password string
}

func NewCredentials(email, password string) (*Credentials, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, domainerr.NewValidationError("password", "Password is required")
	}
	return &Credentials{
		email:    entity.NormalizeEmail(email),
		password: password,
	}, nil
}

func (c *Credentials) Email() string {
	return c.email
}

func (c *Credentials) Password() string {
	return c.password
}

// Registration is a validated signup payload.
type Registration struct {
	Credentials
	name string
}

func NewRegistration(email, name, password string) (*Registration, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	return &Registration{
		Credentials: Credentials{email: entity.NormalizeEmail(email), password: password},
		name:        strings.TrimSpace(name),
	}, nil
}

func (r *Registration) Name() string {
	return r.name
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domainerr.NewValidationError("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domainerr.NewValidationError("email", "Invalid email format")
	}
	if !emailRegex.MatchString(email) {
		return domainerr.NewValidationError("email", "Invalid email format")
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domainerr.NewValidationError("name", "Name is required")
	}
	if len([]rune(name)) < MinNameLength {
		return domainerr.NewValidationError("name", "Name must be at least 3 characters long")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return domainerr.NewValidationError("password", "Password is required")
	}
	if len(password) < MinPasswordLength {
		return domainerr.NewValidationError("password", "Password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		return domainerr.NewValidationError("password", fmt.Sprintf("Password must be at most %d characters long", MaxPasswordLength))
	}
	if !passwordRegex.MatchString(password) ||
		!letterRegex.MatchString(password) ||
		!digitRegex.MatchString(password) ||
		!symbolRegex.MatchString(password) {
		return domainerr.NewValidationError("password", "Password must contain at least one letter, one number, and one special character")
	}
	return nil
}
