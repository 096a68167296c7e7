package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/metrics"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type ConfirmPaymentUseCase struct {
	store    repository.Store
	gateway  repository.PaymentGateway
	notifier repository.Notifier
	timeout  time.Duration
}

func NewConfirmPaymentUseCase(store repository.Store, gateway repository.PaymentGateway, notifier repository.Notifier, timeout time.Duration) *ConfirmPaymentUseCase {
	return &ConfirmPaymentUseCase{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		timeout:  timeout,
	}
}

// Execute переводит платёж в completed. Повторный вызов для уже
// завершённого платежа ничего не меняет и не шлёт уведомлений.
func (uc *ConfirmPaymentUseCase) Execute(ctx context.Context, externalReference string) (*entity.Payment, error) {
	payment, err := uc.store.Payments().FindByReference(ctx, externalReference)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить платёж")
	}
	return uc.complete(ctx, payment)
}

// ExecuteForUser — подтверждение со стороны покупателя. Статус интента
// сверяется со шлюзом, иначе покупатель мог бы закрыть неоплаченный платёж.
func (uc *ConfirmPaymentUseCase) ExecuteForUser(ctx context.Context, externalReference string, userID uuid.UUID) (*entity.Payment, error) {
	payment, err := uc.store.Payments().FindByReference(ctx, externalReference)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить платёж")
	}
	if payment.BuyerID != userID {
		return nil, apperror.ErrForbidden
	}
	if payment.IsCompleted() {
		return payment, nil
	}

	gctx, cancel := context.WithTimeout(ctx, uc.timeout)
	intent, err := uc.gateway.GetIntent(gctx, externalReference)
	cancel()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, apperror.ErrPaymentGateway.Message)
	}
	if !intent.Succeeded() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "платёж ещё не подтверждён платёжной системой")
	}
	return uc.complete(ctx, payment)
}

func (uc *ConfirmPaymentUseCase) complete(ctx context.Context, payment *entity.Payment) (*entity.Payment, error) {
	if payment.IsCompleted() {
		return payment, nil
	}
	if payment.IsFailed() {
		// Отказ был по одной из попыток, повторная оплата тем же интентом прошла.
		logger.Log.WithField("payment_id", payment.ID).Info("settlement: шлюз подтвердил ранее отклонённый платёж")
	}

	updated, err := uc.store.Payments().TransitionStatus(ctx, payment.ID,
		valueobject.PaymentSourcesFor(valueobject.PaymentStatusCompleted), valueobject.PaymentStatusCompleted)
	if errors.Is(err, repository.ErrStaleState) {
		// Параллельная доставка того же события успела первой.
		current, ferr := uc.store.Payments().FindByID(ctx, payment.ID)
		if ferr != nil {
			return nil, apperror.Classify(ferr, apperror.ErrCodeDatabaseError, "не удалось получить платёж")
		}
		if current.IsCompleted() {
			return current, nil
		}
		return nil, apperror.New(apperror.ErrCodeInvalidState, "статус платежа изменился, повторите запрос")
	}
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось подтвердить платёж")
	}

	metrics.PaymentEvent("confirmed")
	payout := updated.Payout()
	logger.Log.WithFields(logrus.Fields{
		"payment_id": updated.ID,
		"amount":     payout.Amount.StringFixed(2),
		"net":        payout.Net.StringFixed(2),
	}).Info("settlement: платёж подтверждён")

	params := map[string]string{
		"payment_id":  updated.ID.String(),
		"project_id":  updated.ProjectID.String(),
		"proposal_id": updated.ProposalID.String(),
		"currency":    updated.Currency,
		"amount":      payout.Amount.StringFixed(2),
		"commission":  payout.Commission.StringFixed(2),
		"net":         payout.Net.StringFixed(2),
	}
	uc.notifier.Notify(entity.Notification{
		RecipientID: updated.BuyerID,
		Kind:        entity.NotificationPaymentCompleted,
		Params:      params,
	})
	uc.notifier.Notify(entity.Notification{
		RecipientID: updated.SellerID,
		Kind:        entity.NotificationPaymentReceived,
		Params:      params,
	})
	return updated, nil
}

type FailPaymentUseCase struct {
	store repository.Store
}

func NewFailPaymentUseCase(store repository.Store) *FailPaymentUseCase {
	return &FailPaymentUseCase{store: store}
}

// Execute фиксирует отказ шлюза. Завершённый платёж провалить нельзя.
// Отказ не окончателен: succeeded по тому же интенту переведёт платёж в completed.
func (uc *FailPaymentUseCase) Execute(ctx context.Context, externalReference string) (*entity.Payment, error) {
	payment, err := uc.store.Payments().FindByReference(ctx, externalReference)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить платёж")
	}
	if payment.IsFailed() {
		return payment, nil
	}
	if payment.IsCompleted() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "платёж уже завершён")
	}

	updated, err := uc.store.Payments().TransitionStatus(ctx, payment.ID,
		valueobject.PaymentSourcesFor(valueobject.PaymentStatusFailed), valueobject.PaymentStatusFailed)
	if errors.Is(err, repository.ErrStaleState) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "статус платежа изменился, повторите запрос")
	}
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось обновить платёж")
	}

	metrics.PaymentEvent("failed")
	logger.Log.WithField("payment_id", updated.ID).Warn("settlement: платёж отклонён шлюзом")
	return updated, nil
}

type MarkProcessingUseCase struct {
	store repository.Store
}

func NewMarkProcessingUseCase(store repository.Store) *MarkProcessingUseCase {
	return &MarkProcessingUseCase{store: store}
}

// Execute переводит pending в processing. Для остальных статусов событие устарело и игнорируется.
func (uc *MarkProcessingUseCase) Execute(ctx context.Context, externalReference string) (*entity.Payment, error) {
	payment, err := uc.store.Payments().FindByReference(ctx, externalReference)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить платёж")
	}

	updated, err := uc.store.Payments().TransitionStatus(ctx, payment.ID,
		valueobject.PaymentSourcesFor(valueobject.PaymentStatusProcessing), valueobject.PaymentStatusProcessing)
	if errors.Is(err, repository.ErrStaleState) {
		return uc.store.Payments().FindByID(ctx, payment.ID)
	}
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось обновить платёж")
	}
	return updated, nil
}
