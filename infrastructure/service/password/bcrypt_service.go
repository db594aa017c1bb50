package password

import (
	"errors"
	"fmt"

	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/authgreet/authgreet/domain/valueobject"
	"golang.org/x/crypto/bcrypt"
)

// maxInputBytes is bcrypt's hard input limit; password and pepper share it.
const maxInputBytes = 72

var (
	ErrEmptyPepper   = errors.New("password pepper cannot be empty")
	ErrPepperTooLong = fmt.Errorf("password pepper cannot exceed %d bytes", valueobject.MaxPepperLength)
)

// BcryptPasswordService hashes password+pepper with bcrypt. The cost is
// encoded in every hash, so raising it never breaks stored hashes.
type BcryptPasswordService struct {
	cost      int
	pepper    string
	dummyHash []byte
}

func NewBcryptPasswordService(cost int, pepper string) (*BcryptPasswordService, error) {
	if pepper == "" {
		return nil, ErrEmptyPepper
	}
	if len(pepper) > valueobject.MaxPepperLength {
		return nil, ErrPepperTooLong
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"+pepper), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &BcryptPasswordService{
		cost:      cost,
		pepper:    pepper,
		dummyHash: dummy,
	}, nil
}

func (s *BcryptPasswordService) peppered(password string) []byte {
	return []byte(password + s.pepper)
}

func (s *BcryptPasswordService) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	input := s.peppered(password)
	if len(input) > maxInputBytes {
		return "", domainerr.NewValidationError("password", "Password is too long")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(input, s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedPassword), nil
}

func (s *BcryptPasswordService) VerifyPassword(password, hash string) (bool, error) {
	if hash == "" {
		return false, fmt.Errorf("hash cannot be empty")
	}
	if password == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), s.peppered(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return false, nil
		}
		return false, fmt.Errorf("failed to compare passwords: %w", err)
	}

	return true, nil
}

func (s *BcryptPasswordService) SimulateVerify(password string) {
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, s.peppered(password))
}

// NeedsRehash reports whether hash was produced under a lower cost than the
// current configuration.
func (s *BcryptPasswordService) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return cost < s.cost
}
