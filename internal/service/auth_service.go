package service

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/ignatzorin/exwork-backend/internal/validation"
	"github.com/sirupsen/logrus"
)

// AuthService инкапсулирует регистрацию и аутентификацию.
type AuthService struct {
	users        repository.UserRepository
	tokenManager *TokenManager
	cost         int
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User  *entity.User
	Token *AccessToken
}

func NewAuthService(users repository.UserRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		users:        users,
		tokenManager: tokenManager,
		cost:         bcrypt.DefaultCost,
	}
}

// Register создаёт пользователя с ролью buyer или seller и сразу выдаёт токен.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role, err := valueobject.NewUserRole(in.Role)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захешировать пароль")
	}

	user, err := entity.NewUser(in.Email, in.Name, string(hash), role)
	if err != nil {
		return nil, err
	}

	if existing, err := s.users.FindByEmail(ctx, user.Email); err == nil && existing != nil {
		return nil, apperror.ErrEmailTaken
	} else if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	// Гонку двух регистраций ловит уникальный индекс: хранилище вернёт ErrEmailTaken.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("auth: пользователь зарегистрирован")

	return s.issue(user)
}

// Login проверяет учётные данные. Неизвестный email и неверный пароль неразличимы.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *entity.User) (*AuthResult, error) {
	token, err := s.tokenManager.Issue(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токен")
	}
	return &AuthResult{User: user, Token: token}, nil
}
