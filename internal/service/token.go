package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
)

// AccessToken — выпущенный токен и момент его истечения.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue выпускает access токен с клеймами sub и role.
func (m *TokenManager) Issue(user *entity.User) (*AccessToken, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("token: не удалось подписать: %w", err)
	}
	return &AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// ParseAccess извлекает userID и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, valueobject.UserRole, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return uuid.Nil, "", err
	}
	if !parsed.Valid {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", err
	}

	rawRole, _ := claims["role"].(string)
	role, err := valueobject.NewUserRole(rawRole)
	if err != nil {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	return userID, role, nil
}
