package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Payment — оплата принятого предложения. Комиссия фиксируется при создании.
type Payment struct {
	ID                uuid.UUID
	ProjectID         uuid.UUID
	ProposalID        uuid.UUID
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	Amount            decimal.Decimal
	Commission        decimal.Decimal
	Currency          string
	Status            valueobject.PaymentStatus
	ExternalReference string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewPayment(proposal *Proposal, buyerID uuid.UUID, currency, externalReference string) (*Payment, error) {
	if !proposal.IsAccepted() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "оплатить можно только принятое предложение")
	}
	if strings.TrimSpace(externalReference) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "не получен идентификатор платежа от шлюза")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	now := time.Now()
	return &Payment{
		ID:                uuid.New(),
		ProjectID:         proposal.ProjectID,
		ProposalID:        proposal.ID,
		BuyerID:           buyerID,
		SellerID:          proposal.SellerID,
		Amount:            proposal.Price,
		Commission:        valueobject.Commission(proposal.Price),
		Currency:          strings.ToLower(currency),
		Status:            valueobject.PaymentStatusPending,
		ExternalReference: externalReference,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Net — сумма к выплате продавцу.
func (p *Payment) Net() decimal.Decimal {
	return p.Amount.Sub(p.Commission)
}

func (p *Payment) Payout() valueobject.Payout {
	return valueobject.Payout{Amount: p.Amount, Commission: p.Commission, Net: p.Net()}
}

func (p *Payment) IsParticipant(userID uuid.UUID) bool {
	return p.BuyerID == userID || p.SellerID == userID
}

func (p *Payment) IsCompleted() bool {
	return p.Status == valueobject.PaymentStatusCompleted
}

func (p *Payment) IsFailed() bool {
	return p.Status == valueobject.PaymentStatusFailed
}
