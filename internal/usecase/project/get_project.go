package project

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type GetProjectUseCase struct {
	store repository.Store
}

func NewGetProjectUseCase(store repository.Store) *GetProjectUseCase {
	return &GetProjectUseCase{store: store}
}

func (uc *GetProjectUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	project, err := uc.store.Projects().FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить проект")
	}
	return project, nil
}

type ListProjectsUseCase struct {
	store repository.Store
}

func NewListProjectsUseCase(store repository.Store) *ListProjectsUseCase {
	return &ListProjectsUseCase{store: store}
}

func (uc *ListProjectsUseCase) Execute(ctx context.Context, filter repository.ProjectFilter) ([]*entity.Project, int, error) {
	if filter.Status != "" {
		if _, err := valueobject.NewProjectStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	projects, total, err := uc.store.Projects().List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить список проектов")
	}
	return projects, total, nil
}
