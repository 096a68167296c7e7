package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// ErrorHandler перехватывает panic и ошибки, добавленные через c.Error,
// если обработчик сам не записал ответ. Внутренние детали клиенту не отдаются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.WithFields(logrus.Fields{
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
					"panic":  r,
					"stack":  string(debug.Stack()),
				}).Error("http: перехвачена panic")
				if !c.Writer.Written() {
					response.Error(c, fmt.Errorf("panic: %v", r))
				}
			}
		}()

		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		response.Error(c, c.Errors.Last().Err)
	}
}

// RequestLogger пишет каждый запрос в структурированный лог.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.Log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("http: запрос завершился ошибкой")
			return
		}
		entry.Debug("http: запрос обработан")
	}
}
