package message

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

const previewLength = 120

// isParticipant — покупатель проекта или продавец с предложением на нём.
func isParticipant(ctx context.Context, store repository.Store, project *entity.Project, userID uuid.UUID) (bool, error) {
	if project.IsOwnedBy(userID) {
		return true, nil
	}
	proposal, err := store.Proposals().FindByProjectAndSeller(ctx, project.ID, userID)
	if err != nil {
		return false, err
	}
	return proposal != nil, nil
}

type SendMessageUseCase struct {
	store    repository.Store
	notifier repository.Notifier
}

func NewSendMessageUseCase(store repository.Store, notifier repository.Notifier) *SendMessageUseCase {
	return &SendMessageUseCase{
		store:    store,
		notifier: notifier,
	}
}

// Execute добавляет сообщение в переписку по проекту. Переписка ведётся
// между покупателем и продавцами, продавцы друг другу не пишут.
func (uc *SendMessageUseCase) Execute(ctx context.Context, projectID, senderID, receiverID uuid.UUID, content string) (*entity.Message, error) {
	msg, err := entity.NewMessage(projectID, senderID, receiverID, content)
	if err != nil {
		return nil, err
	}

	project, err := uc.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить проект")
	}

	ok, err := isParticipant(ctx, uc.store, project, senderID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось проверить доступ")
	}
	if !ok {
		return nil, apperror.New(apperror.ErrCodeForbidden, "вы не участвуете в этом проекте")
	}
	ok, err = isParticipant(ctx, uc.store, project, receiverID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось проверить доступ")
	}
	if !ok || (!project.IsOwnedBy(senderID) && !project.IsOwnedBy(receiverID)) {
		return nil, apperror.New(apperror.ErrCodeValidation, "получатель не участвует в переписке по проекту")
	}

	if err := uc.store.Messages().Create(ctx, msg); err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось отправить сообщение")
	}

	uc.notifier.Notify(entity.Notification{
		RecipientID: receiverID,
		Kind:        entity.NotificationMessageReceived,
		Params: map[string]string{
			"project_id":    project.ID.String(),
			"project_title": project.Title,
			"message_id":    msg.ID.String(),
			"preview":       preview(msg.Content),
		},
	})
	return msg, nil
}

type ListProjectMessagesUseCase struct {
	store repository.Store
}

func NewListProjectMessagesUseCase(store repository.Store) *ListProjectMessagesUseCase {
	return &ListProjectMessagesUseCase{store: store}
}

// Execute возвращает переписку пользователя по проекту и отмечает
// адресованные ему сообщения прочитанными.
func (uc *ListProjectMessagesUseCase) Execute(ctx context.Context, projectID, userID uuid.UUID) ([]*entity.Message, error) {
	project, err := uc.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить проект")
	}
	ok, err := isParticipant(ctx, uc.store, project, userID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось проверить доступ")
	}
	if !ok {
		return nil, apperror.New(apperror.ErrCodeForbidden, "вы не участвуете в этом проекте")
	}

	if _, err := uc.store.Messages().MarkReadForReceiver(ctx, projectID, userID); err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось обновить сообщения")
	}
	messages, err := uc.store.Messages().FindByProject(ctx, projectID, userID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщения")
	}
	return messages, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "…"
}
