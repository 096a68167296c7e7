package proposal

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/metrics"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
)

type UpdateProposalStatusUseCase struct {
	store    repository.Store
	notifier repository.Notifier
}

func NewUpdateProposalStatusUseCase(store repository.Store, notifier repository.Notifier) *UpdateProposalStatusUseCase {
	return &UpdateProposalStatusUseCase{
		store:    store,
		notifier: notifier,
	}
}

// Execute выбирает переход по запрошенному статусу: accepted и rejected
// доступны покупателю, cancelled — продавцу.
func (uc *UpdateProposalStatusUseCase) Execute(ctx context.Context, proposalID, actorID uuid.UUID, newStatus string) (*entity.Proposal, error) {
	switch valueobject.ProposalStatus(newStatus) {
	case valueobject.ProposalStatusAccepted:
		return uc.Accept(ctx, proposalID, actorID)
	case valueobject.ProposalStatusRejected:
		return uc.Reject(ctx, proposalID, actorID)
	case valueobject.ProposalStatusCancelled:
		return uc.Cancel(ctx, proposalID, actorID)
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
}

// Accept принимает предложение, переводит проект в работу и отклоняет
// остальные ожидающие предложения одной единицей работы.
func (uc *UpdateProposalStatusUseCase) Accept(ctx context.Context, proposalID, buyerID uuid.UUID) (*entity.Proposal, error) {
	projectID, err := uc.projectOf(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var accepted *entity.Proposal
	var rejected []*entity.Proposal
	var project *entity.Project

	err = uc.store.WithinProjectLock(ctx, projectID, func(uow repository.UnitOfWork) error {
		p, err := uow.Projects().FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if !p.IsOwnedBy(buyerID) {
			return apperror.ErrForbidden
		}

		proposals, err := uow.Proposals().FindByProject(ctx, projectID)
		if err != nil {
			return err
		}
		var target *entity.Proposal
		for _, candidate := range proposals {
			if candidate.ID == proposalID {
				target = candidate
			}
		}
		if target == nil {
			return apperror.ErrProposalNotFound
		}
		if !target.IsPending() {
			return apperror.ErrProposalNotPending
		}
		if err := p.StartWork(); err != nil {
			return err
		}
		if err := target.Accept(); err != nil {
			return err
		}

		if err := uow.Proposals().UpdateStatus(ctx, target.ID, target.Status); err != nil {
			return err
		}
		if err := uow.Projects().UpdateStatus(ctx, p.ID, p.Status); err != nil {
			return err
		}
		for _, other := range proposals {
			if other.ID == target.ID || !other.IsPending() {
				continue
			}
			if err := other.Reject(); err != nil {
				return err
			}
			if err := uow.Proposals().UpdateStatus(ctx, other.ID, other.Status); err != nil {
				return err
			}
			rejected = append(rejected, other)
		}

		accepted, project = target, p
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось принять предложение")
	}

	logger.Log.WithFields(logrus.Fields{
		"project_id":  project.ID,
		"proposal_id": accepted.ID,
		"rejected":    len(rejected),
	}).Info("proposal: предложение принято")

	metrics.ProposalEvent("accepted")
	uc.notifyDecision(project, accepted, entity.NotificationProposalAccepted)
	for _, r := range rejected {
		metrics.ProposalEvent("rejected")
		uc.notifyDecision(project, r, entity.NotificationProposalRejected)
	}

	return accepted, nil
}

// Reject отклоняет одно ожидающее предложение без каскада.
func (uc *UpdateProposalStatusUseCase) Reject(ctx context.Context, proposalID, buyerID uuid.UUID) (*entity.Proposal, error) {
	projectID, err := uc.projectOf(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var proposal *entity.Proposal
	var project *entity.Project
	err = uc.store.WithinProjectLock(ctx, projectID, func(uow repository.UnitOfWork) error {
		p, err := uow.Projects().FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if !p.IsOwnedBy(buyerID) {
			return apperror.ErrForbidden
		}
		target, err := uow.Proposals().FindByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if !target.IsPending() {
			return apperror.ErrProposalNotPending
		}
		if err := target.Reject(); err != nil {
			return err
		}
		if err := uow.Proposals().UpdateStatus(ctx, target.ID, target.Status); err != nil {
			return err
		}
		proposal, project = target, p
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось отклонить предложение")
	}

	metrics.ProposalEvent("rejected")
	uc.notifyDecision(project, proposal, entity.NotificationProposalRejected)
	return proposal, nil
}

// Cancel — продавец отзывает своё ожидающее предложение.
func (uc *UpdateProposalStatusUseCase) Cancel(ctx context.Context, proposalID, sellerID uuid.UUID) (*entity.Proposal, error) {
	projectID, err := uc.projectOf(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var proposal *entity.Proposal
	err = uc.store.WithinProjectLock(ctx, projectID, func(uow repository.UnitOfWork) error {
		target, err := uow.Proposals().FindByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if !target.IsOwnedBy(sellerID) {
			return apperror.ErrForbidden
		}
		if !target.IsPending() {
			return apperror.ErrProposalNotPending
		}
		if err := target.Cancel(); err != nil {
			return err
		}
		if err := uow.Proposals().UpdateStatus(ctx, target.ID, target.Status); err != nil {
			return err
		}
		proposal = target
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось отозвать предложение")
	}

	metrics.ProposalEvent("cancelled")
	return proposal, nil
}

func (uc *UpdateProposalStatusUseCase) projectOf(ctx context.Context, proposalID uuid.UUID) (uuid.UUID, error) {
	proposal, err := uc.store.Proposals().FindByID(ctx, proposalID)
	if err != nil {
		return uuid.Nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}
	return proposal.ProjectID, nil
}

func (uc *UpdateProposalStatusUseCase) notifyDecision(project *entity.Project, proposal *entity.Proposal, kind entity.NotificationKind) {
	uc.notifier.Notify(entity.Notification{
		RecipientID: proposal.SellerID,
		Kind:        kind,
		Params: map[string]string{
			"project_id":    project.ID.String(),
			"project_title": project.Title,
			"proposal_id":   proposal.ID.String(),
		},
	})
}
