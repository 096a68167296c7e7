package entity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

// User — участник площадки. Роль задаётся при регистрации и не меняется.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         valueobject.UserRole
	CreatedAt    time.Time
}

func NewUser(email, name, passwordHash string, role valueobject.UserRole) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный email")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "имя обязательно")
	}
	if !role.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "роль должна быть buyer или seller")
	}

	return &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}, nil
}

func (u *User) IsBuyer() bool {
	return u.Role == valueobject.RoleBuyer
}

func (u *User) IsSeller() bool {
	return u.Role == valueobject.RoleSeller
}
