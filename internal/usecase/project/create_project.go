package project

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

type CreateProjectInput struct {
	Title       string
	Description string
	Budget      decimal.Decimal
	Deadline    time.Time
}

type CreateProjectUseCase struct {
	store repository.Store
}

func NewCreateProjectUseCase(store repository.Store) *CreateProjectUseCase {
	return &CreateProjectUseCase{store: store}
}

func (uc *CreateProjectUseCase) Execute(ctx context.Context, buyerID uuid.UUID, input CreateProjectInput) (*entity.Project, error) {
	project, err := entity.NewProject(buyerID, input.Title, input.Description, input.Budget, input.Deadline)
	if err != nil {
		return nil, err
	}
	if err := uc.store.Projects().Create(ctx, project); err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось создать проект")
	}
	return project, nil
}
