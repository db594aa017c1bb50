package valueobject

import (
	"strings"
	"testing"

	domainerr "github.com/authgreet/authgreet/domain/error"
	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Passw0rd!", false},
		{"empty", "", true},
		{"too short", "Pa0!", true},
		{"no symbol", "Passw0rdd", true},
		{"longest allowed", "Passw0rd!" + strings.Repeat("a", MaxPasswordLength-9), false},
		{"one over", "Passw0rd!" + strings.Repeat("a", MaxPasswordLength-8), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, domainerr.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPasswordAndPepperFitBcrypt(t *testing.T) {
	assert.Equal(t, 72, MaxPasswordLength+MaxPepperLength)
}
