package proposal

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

type ListProjectProposalsUseCase struct {
	store repository.Store
}

func NewListProjectProposalsUseCase(store repository.Store) *ListProjectProposalsUseCase {
	return &ListProjectProposalsUseCase{store: store}
}

// Execute отдаёт предложения по проекту только его владельцу.
func (uc *ListProjectProposalsUseCase) Execute(ctx context.Context, projectID, buyerID uuid.UUID) ([]*entity.Proposal, error) {
	project, err := uc.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить проект")
	}
	if !project.IsOwnedBy(buyerID) {
		return nil, apperror.ErrForbidden
	}

	proposals, err := uc.store.Proposals().FindByProject(ctx, projectID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	return proposals, nil
}

type ListMyProposalsUseCase struct {
	store repository.Store
}

func NewListMyProposalsUseCase(store repository.Store) *ListMyProposalsUseCase {
	return &ListMyProposalsUseCase{store: store}
}

func (uc *ListMyProposalsUseCase) Execute(ctx context.Context, sellerID uuid.UUID) ([]*entity.Proposal, error) {
	proposals, err := uc.store.Proposals().FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	return proposals, nil
}
