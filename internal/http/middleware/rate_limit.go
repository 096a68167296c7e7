package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimitMiddleware ограничивает число запросов с одного IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{
		Period: period,
		Limit:  limit,
	})

	return func(c *gin.Context) {
		lctx, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Лимитер в памяти не должен падать; если упал, запрос пропускаем.
			logger.Log.WithError(err).Warn("rate limit: не удалось получить счётчик")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			response.TooManyRequests(c, "слишком много запросов, попробуйте позже")
			return
		}
		c.Next()
	}
}
