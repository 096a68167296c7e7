package settlement

import (
	"context"
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

type InitiatePaymentResult struct {
	Payment      *entity.Payment
	ClientSecret string
	// Existing — возвращён ранее созданный платёж, новый интент не создавался.
	Existing bool
}

type InitiatePaymentUseCase struct {
	store    repository.Store
	gateway  repository.PaymentGateway
	currency string
	timeout  time.Duration
}

func NewInitiatePaymentUseCase(store repository.Store, gateway repository.PaymentGateway, currency string, timeout time.Duration) *InitiatePaymentUseCase {
	return &InitiatePaymentUseCase{
		store:    store,
		gateway:  gateway,
		currency: currency,
		timeout:  timeout,
	}
}

// Execute создаёт платёжный интент у шлюза и сохраняет pending-платёж.
// Пока по предложению есть платёж не в статусе failed, повторный вызов
// возвращает его же. Интенты отклонённых платежей отменяются до создания
// нового. Шлюз вызывается под блокировкой проекта, поэтому два
// параллельных запроса не создадут два интента.
func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, proposalID, buyerID uuid.UUID) (*InitiatePaymentResult, error) {
	proposal, err := uc.store.Proposals().FindByID(ctx, proposalID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}

	var result *InitiatePaymentResult
	err = uc.store.WithinProjectLock(ctx, proposal.ProjectID, func(uow repository.UnitOfWork) error {
		project, err := uow.Projects().FindByID(ctx, proposal.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsOwnedBy(buyerID) {
			return apperror.ErrForbidden
		}
		current, err := uow.Proposals().FindByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if !current.IsAccepted() {
			return apperror.New(apperror.ErrCodeInvalidState, "оплатить можно только принятое предложение")
		}

		existing, err := uow.Payments().FindByProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		for _, payment := range existing {
			if payment.IsFailed() {
				continue
			}
			if payment.IsCompleted() {
				return apperror.New(apperror.ErrCodeInvalidState, "предложение уже оплачено")
			}
			intent, err := uc.getIntent(ctx, payment.ExternalReference)
			if err != nil {
				return err
			}
			result = &InitiatePaymentResult{Payment: payment, ClientSecret: intent.ClientSecret, Existing: true}
			return nil
		}
		for _, payment := range existing {
			if err := uc.retireIntent(ctx, payment); err != nil {
				return err
			}
		}

		intent, err := uc.createIntent(ctx, current, project)
		if err != nil {
			return err
		}
		payment, err := entity.NewPayment(current, buyerID, uc.currency, intent.ID)
		if err != nil {
			return err
		}
		if err := uow.Payments().Create(ctx, payment); err != nil {
			return err
		}
		result = &InitiatePaymentResult{Payment: payment, ClientSecret: intent.ClientSecret}
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось создать платёж")
	}

	if !result.Existing {
		metrics.PaymentEvent("initiated")
		logger.Log.WithFields(logrus.Fields{
			"payment_id":  result.Payment.ID,
			"proposal_id": proposalID,
			"amount":      result.Payment.Amount.StringFixed(2),
			"commission":  result.Payment.Commission.StringFixed(2),
		}).Info("settlement: платёж создан")
	}
	return result, nil
}

func (uc *InitiatePaymentUseCase) createIntent(ctx context.Context, proposal *entity.Proposal, project *entity.Project) (*repository.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	intent, err := uc.gateway.CreateIntent(ctx, valueobject.Cents(proposal.Price), uc.currency, map[string]string{
		"project_id":  project.ID.String(),
		"proposal_id": proposal.ID.String(),
		"buyer_id":    project.BuyerID.String(),
		"seller_id":   proposal.SellerID.String(),
		"commission":  valueobject.Commission(proposal.Price).StringFixed(2),
	})
	if err != nil {
		metrics.PaymentEvent("gateway_error")
		logger.Log.WithFields(logrus.Fields{
			"proposal_id": proposal.ID,
			"error":       err.Error(),
		}).Error("settlement: шлюз отклонил создание интента")
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, "платёжный шлюз отклонил создание платежа")
	}
	return intent, nil
}

func (uc *InitiatePaymentUseCase) getIntent(ctx context.Context, id string) (*repository.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	intent, err := uc.gateway.GetIntent(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, apperror.ErrPaymentGateway.Message)
	}
	return intent, nil
}

// retireIntent отменяет интент отклонённого платежа. Если по нему уже
// прошли деньги, новый платёж создавать нельзя: его закроет вебхук.
func (uc *InitiatePaymentUseCase) retireIntent(ctx context.Context, payment *entity.Payment) error {
	intent, err := uc.getIntent(ctx, payment.ExternalReference)
	if err != nil {
		return err
	}
	if intent.Settling() {
		return apperror.New(apperror.ErrCodeInvalidState, "предыдущий платёж проведён платёжной системой, дождитесь подтверждения")
	}
	if intent.Status == repository.IntentStatusCanceled {
		return nil
	}

	gctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.gateway.CancelIntent(gctx, payment.ExternalReference); err != nil {
		metrics.PaymentEvent("gateway_error")
		logger.Log.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"reference":  payment.ExternalReference,
			"error":      err.Error(),
		}).Error("settlement: не удалось отменить интент")
		return apperror.Wrap(err, apperror.ErrCodeUpstream, apperror.ErrPaymentGateway.Message)
	}
	logger.Log.WithField("payment_id", payment.ID).Info("settlement: интент отклонённого платежа отменён")
	return nil
}
