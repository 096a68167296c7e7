package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/http/middleware"
)

func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDValue, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, errors.New("user_id не найден в контексте")
	}

	userID, ok := userIDValue.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("некорректный формат user_id")
	}
	return userID, nil
}

func getRole(c *gin.Context) valueobject.UserRole {
	role, _ := c.Get(middleware.ContextRoleKey)
	r, _ := role.(valueobject.UserRole)
	return r
}

// paramUUID читает UUID из пути; формат уже проверен UUIDValidator.
func paramUUID(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
