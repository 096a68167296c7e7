package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

const maxDeliveryDays = 365

type Proposal struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	SellerID     uuid.UUID
	Details      string
	Price        decimal.Decimal
	DeliveryDays int
	Status       valueobject.ProposalStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewProposal(projectID, sellerID uuid.UUID, details string, price decimal.Decimal, deliveryDays int) (*Proposal, error) {
	if strings.TrimSpace(details) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание услуги обязательно")
	}
	money, err := valueobject.NewMoney(price)
	if err != nil {
		return nil, err
	}
	if deliveryDays <= 0 || deliveryDays > maxDeliveryDays {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок выполнения должен быть от 1 до 365 дней")
	}

	now := time.Now()
	return &Proposal{
		ID:           uuid.New(),
		ProjectID:    projectID,
		SellerID:     sellerID,
		Details:      details,
		Price:        money.Amount,
		DeliveryDays: deliveryDays,
		Status:       valueobject.ProposalStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (p *Proposal) transition(status valueobject.ProposalStatus, msg string) error {
	if !p.Status.CanTransitionTo(status) {
		return apperror.New(apperror.ErrCodeInvalidState, msg)
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Proposal) Accept() error {
	return p.transition(valueobject.ProposalStatusAccepted, "можно принять только ожидающее предложение")
}

func (p *Proposal) Reject() error {
	return p.transition(valueobject.ProposalStatusRejected, "можно отклонить только ожидающее предложение")
}

// Cancel отзывает ожидающее предложение или отменяет принятое вместе с проектом.
func (p *Proposal) Cancel() error {
	return p.transition(valueobject.ProposalStatusCancelled, "предложение нельзя отменить в текущем статусе")
}

func (p *Proposal) Complete() error {
	return p.transition(valueobject.ProposalStatusCompleted, "завершить можно только принятое предложение")
}

func (p *Proposal) IsOwnedBy(userID uuid.UUID) bool {
	return p.SellerID == userID
}

func (p *Proposal) IsPending() bool {
	return p.Status == valueobject.ProposalStatusPending
}

func (p *Proposal) IsAccepted() bool {
	return p.Status == valueobject.ProposalStatusAccepted
}
