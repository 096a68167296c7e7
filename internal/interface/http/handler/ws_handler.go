package handler

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ignatzorin/exwork-backend/internal/http/middleware"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/ws"
	"github.com/sirupsen/logrus"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.TokenParser
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт хэндлер; пустой список или "*" разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, tokens middleware.TokenParser, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
// Браузер не умеет передавать заголовок Authorization при апгрейде, поэтому токен в query.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	userID, _, err := h.tokens.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту.
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("ws: не удалось установить соединение")
		return
	}

	ws.NewClient(conn, h.hub, userID).Run(c.Request.Context())
}
