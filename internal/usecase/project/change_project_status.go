package project

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

type ChangeProjectStatusUseCase struct {
	store    repository.Store
	notifier repository.Notifier
}

func NewChangeProjectStatusUseCase(store repository.Store, notifier repository.Notifier) *ChangeProjectStatusUseCase {
	return &ChangeProjectStatusUseCase{
		store:    store,
		notifier: notifier,
	}
}

// Execute — ручная смена статуса покупателем. В работу проект переводится
// только принятием предложения, поэтому in_progress здесь запрещён.
// Отмена открытого проекта отклоняет ожидающие предложения, а завершение
// или отмена проекта в работе закрывает принятое предложение.
func (uc *ChangeProjectStatusUseCase) Execute(ctx context.Context, projectID, buyerID uuid.UUID, rawStatus string) (*entity.Project, error) {
	status, err := valueobject.NewProjectStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if status == valueobject.ProjectStatusInProgress {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "проект переходит в работу только при принятии предложения")
	}

	var project *entity.Project
	var rejected []*entity.Proposal
	err = uc.store.WithinProjectLock(ctx, projectID, func(uow repository.UnitOfWork) error {
		p, err := uow.Projects().FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if !p.IsOwnedBy(buyerID) {
			return apperror.ErrForbidden
		}
		from := p.Status
		if err := p.TransitionTo(status); err != nil {
			return err
		}

		proposals, err := uow.Proposals().FindByProject(ctx, projectID)
		if err != nil {
			return err
		}
		for _, proposal := range proposals {
			var next error
			switch {
			case from != valueobject.ProjectStatusInProgress && status == valueobject.ProjectStatusCancelled && proposal.IsPending():
				next = proposal.Reject()
				rejected = append(rejected, proposal)
			case from == valueobject.ProjectStatusInProgress && proposal.IsAccepted() && status == valueobject.ProjectStatusCompleted:
				next = proposal.Complete()
			case from == valueobject.ProjectStatusInProgress && proposal.IsAccepted() && status == valueobject.ProjectStatusCancelled:
				next = proposal.Cancel()
			default:
				continue
			}
			if next != nil {
				return next
			}
			if err := uow.Proposals().UpdateStatus(ctx, proposal.ID, proposal.Status); err != nil {
				return err
			}
		}

		if err := uow.Projects().UpdateStatus(ctx, p.ID, p.Status); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось изменить статус проекта")
	}

	logger.Log.WithFields(logrus.Fields{
		"project_id": project.ID,
		"status":     project.Status,
		"rejected":   len(rejected),
	}).Info("project: статус изменён")

	for _, proposal := range rejected {
		metrics.ProposalEvent("rejected")
		uc.notifier.Notify(entity.Notification{
			RecipientID: proposal.SellerID,
			Kind:        entity.NotificationProposalRejected,
			Params: map[string]string{
				"project_id":    project.ID.String(),
				"project_title": project.Title,
				"proposal_id":   proposal.ID.String(),
			},
		})
	}
	return project, nil
}
