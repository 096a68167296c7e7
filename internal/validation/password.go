package validation

import (
	"unicode"
	"unicode/utf8"

	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ValidatePassword проверяет пароль: длина 8–72 байта, есть заглавная, строчная буква и цифра.
// Верхняя граница — предел bcrypt.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.New(apperror.ErrCodeValidation, "пароль должен быть не менее 8 символов")
	}
	if len(password) > MaxPasswordLength {
		return apperror.New(apperror.ErrCodeValidation, "пароль слишком длинный")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return apperror.New(apperror.ErrCodeValidation, "пароль должен содержать хотя бы одну заглавную букву")
	}
	if !hasLower {
		return apperror.New(apperror.ErrCodeValidation, "пароль должен содержать хотя бы одну строчную букву")
	}
	if !hasNumber {
		return apperror.New(apperror.ErrCodeValidation, "пароль должен содержать хотя бы одну цифру")
	}
	return nil
}
