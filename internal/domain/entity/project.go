package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

type Project struct {
	ID          uuid.UUID
	BuyerID     uuid.UUID
	Title       string
	Description string
	Budget      decimal.Decimal
	Deadline    time.Time
	Status      valueobject.ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProject(buyerID uuid.UUID, title, description string, budget decimal.Decimal, deadline time.Time) (*Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название проекта обязательно")
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание проекта обязательно")
	}
	money, err := valueobject.NewMoney(budget)
	if err != nil {
		return nil, err
	}
	if !deadline.After(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дедлайн должен быть в будущем")
	}

	now := time.Now()
	return &Project{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Budget:      money.Amount,
		Deadline:    deadline,
		Status:      valueobject.ProjectStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TransitionTo переводит проект в новый статус по таблице переходов.
func (p *Project) TransitionTo(status valueobject.ProjectStatus) error {
	if !p.Status.CanTransitionTo(status) {
		return apperror.New(apperror.ErrCodeInvalidState, "недопустимый переход статуса проекта: "+string(p.Status)+" → "+string(status))
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

// StartWork вызывается каскадом принятия предложения.
func (p *Project) StartWork() error {
	if p.Status != valueobject.ProjectStatusOpen && p.Status != valueobject.ProjectStatusPending {
		return apperror.New(apperror.ErrCodeInvalidState, "проект уже не принимает решения по предложениям")
	}
	return p.TransitionTo(valueobject.ProjectStatusInProgress)
}

func (p *Project) IsOwnedBy(userID uuid.UUID) bool {
	return p.BuyerID == userID
}

func (p *Project) IsOpen() bool {
	return p.Status.AcceptsProposals()
}
