package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/dto"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/usecase/message"
)

type MessageHandler struct {
	sendUC *message.SendMessageUseCase
	listUC *message.ListProjectMessagesUseCase
}

func NewMessageHandler(sendUC *message.SendMessageUseCase, listUC *message.ListProjectMessagesUseCase) *MessageHandler {
	return &MessageHandler{sendUC: sendUC, listUC: listUC}
}

// SendMessage обслуживает POST /api/projects/:id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	projectID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID проекта")
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	msg, err := h.sendUC.Execute(c.Request.Context(), projectID, userID, req.ReceiverID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToMessageResponse(msg))
}

// ListMessages возвращает переписку по проекту и помечает входящие прочитанными.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	projectID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID проекта")
		return
	}

	messages, err := h.listUC.Execute(c.Request.Context(), projectID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMessageResponses(messages))
}
