package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error отдаёт AppError с его статусом. Остальные ошибки скрываются за INTERNAL_ERROR,
// детали драйвера попадают только в лог.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logRequestError(c, err)
		}
		message := appErr.Message
		if appErr.Code == apperror.ErrCodeDatabaseError || appErr.Code == apperror.ErrCodeInternal {
			message = "внутренняя ошибка сервера"
		}
		c.AbortWithStatusJSON(appErr.HTTPStatus, Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    string(appErr.Code),
				Message: message,
			},
		})
		return
	}

	logRequestError(c, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(apperror.ErrCodeInternal),
			Message: "внутренняя ошибка сервера",
		},
	})
}

func BadRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, apperror.ErrCodeValidation, message)
}

func Unauthorized(c *gin.Context, message string) {
	fail(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	fail(c, http.StatusForbidden, apperror.ErrCodeForbidden, message)
}

func TooManyRequests(c *gin.Context, message string) {
	fail(c, http.StatusTooManyRequests, "RATE_LIMITED", message)
}

func fail(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	})
}

func logRequestError(c *gin.Context, err error) {
	logger.Log.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"error":  err.Error(),
	}).Error("http: ошибка обработки запроса")
}
