package validation

import (
	"strings"
	"testing"

	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Secret123", false},
		{"кириллица", "Пароль123", false},
		{"short", "Ab1", true},
		{"no upper", "secret123", true},
		{"no lower", "SECRET123", true},
		{"no digit", "SecretSecret", true},
		{"too long", "Aa1" + strings.Repeat("x", 80), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.True(t, apperror.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
