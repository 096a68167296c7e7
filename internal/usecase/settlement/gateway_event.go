package settlement

import (
	"context"

	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type HandleGatewayEventUseCase struct {
	verifier   repository.WebhookVerifier
	confirm    *ConfirmPaymentUseCase
	fail       *FailPaymentUseCase
	processing *MarkProcessingUseCase
}

func NewHandleGatewayEventUseCase(verifier repository.WebhookVerifier, confirm *ConfirmPaymentUseCase, fail *FailPaymentUseCase, processing *MarkProcessingUseCase) *HandleGatewayEventUseCase {
	return &HandleGatewayEventUseCase{
		verifier:   verifier,
		confirm:    confirm,
		fail:       fail,
		processing: processing,
	}
}

// Execute проверяет подпись и применяет событие шлюза. Шлюз доставляет
// события как минимум один раз, поэтому все переходы идемпотентны.
// Неизвестные платежи и типы событий подтверждаются без изменений,
// чтобы шлюз не повторял доставку.
func (uc *HandleGatewayEventUseCase) Execute(ctx context.Context, payload []byte, signature string) error {
	event, err := uc.verifier.ParseEvent(payload, signature)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректная подпись вебхука")
	}

	log := logger.Log.WithFields(logrus.Fields{
		"event_id":  event.ID,
		"type":      event.Type,
		"reference": event.ExternalReference,
	})

	switch event.Type {
	case repository.GatewayEventSucceeded:
		_, err = uc.confirm.Execute(ctx, event.ExternalReference)
	case repository.GatewayEventProcessing:
		_, err = uc.processing.Execute(ctx, event.ExternalReference)
	case repository.GatewayEventFailed:
		_, err = uc.fail.Execute(ctx, event.ExternalReference)
	default:
		log.Debug("settlement: событие шлюза пропущено")
		return nil
	}

	switch {
	case err == nil:
		return nil
	case apperror.IsNotFound(err), apperror.IsInvalidState(err):
		log.WithField("error", err.Error()).Warn("settlement: событие шлюза не применено")
		return nil
	default:
		return err
	}
}
