package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

const maxMessageLength = 5000

// Message неизменяем после создания, кроме флага прочтения.
type Message struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Content    string
	Read       bool
	CreatedAt  time.Time
}

func NewMessage(projectID, senderID, receiverID uuid.UUID, content string) (*Message, error) {
	if senderID == receiverID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя отправить сообщение самому себе")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}
	if len([]rune(content)) > maxMessageLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение слишком длинное")
	}
	return &Message{
		ID:         uuid.New(),
		ProjectID:  projectID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) Involves(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}
