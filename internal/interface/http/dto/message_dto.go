package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
)

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
	Content    string    `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"project_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToMessageResponse(m *entity.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		ProjectID:  m.ProjectID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

func ToMessageResponses(messages []*entity.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, ToMessageResponse(m))
	}
	return responses
}
