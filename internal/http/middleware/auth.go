package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// TokenParser проверяет access токен.
type TokenParser interface {
	ParseAccess(token string) (uuid.UUID, valueobject.UserRole, error)
}

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		userID, role, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || userID == uuid.Nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью. Ставится после AuthMiddleware.
func RequireRole(role valueobject.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actual, _ := c.Get(ContextRoleKey)
		if r, ok := actual.(valueobject.UserRole); !ok || r != role {
			response.Forbidden(c, "действие доступно только для роли "+string(role))
			return
		}
		c.Next()
	}
}
