package proposal

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/metrics"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

type SubmitProposalInput struct {
	Details      string
	Price        decimal.Decimal
	DeliveryDays int
}

type SubmitProposalUseCase struct {
	store    repository.Store
	notifier repository.Notifier
}

func NewSubmitProposalUseCase(store repository.Store, notifier repository.Notifier) *SubmitProposalUseCase {
	return &SubmitProposalUseCase{
		store:    store,
		notifier: notifier,
	}
}

// Execute создаёт предложение продавца. Проверка статуса проекта и уникальности
// выполняется под блокировкой проекта, чтобы не пересечься с принятием.
func (uc *SubmitProposalUseCase) Execute(ctx context.Context, projectID, sellerID uuid.UUID, input SubmitProposalInput) (*entity.Proposal, error) {
	proposal, err := entity.NewProposal(projectID, sellerID, input.Details, input.Price, input.DeliveryDays)
	if err != nil {
		return nil, err
	}

	var project *entity.Project
	err = uc.store.WithinProjectLock(ctx, projectID, func(uow repository.UnitOfWork) error {
		p, err := uow.Projects().FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if !p.IsOpen() {
			return apperror.ErrProjectNotOpen
		}

		existing, err := uow.Proposals().FindByProjectAndSeller(ctx, projectID, sellerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrDuplicateProposal
		}

		if err := uow.Proposals().Create(ctx, proposal); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось создать предложение")
	}

	metrics.ProposalEvent("submitted")
	uc.notifier.Notify(entity.Notification{
		RecipientID: project.BuyerID,
		Kind:        entity.NotificationProposalReceived,
		Params: map[string]string{
			"project_id":    project.ID.String(),
			"project_title": project.Title,
			"proposal_id":   proposal.ID.String(),
			"price":         proposal.Price.StringFixed(2),
		},
	})

	return proposal, nil
}
