package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type SubmitProposalRequest struct {
	Details      string          `json:"details" binding:"required,max=5000"`
	Price        decimal.Decimal `json:"price"`
	DeliveryDays int             `json:"delivery_days" binding:"required"`
}

type UpdateProposalStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected cancelled"`
}

type ProposalResponse struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	SellerID     uuid.UUID `json:"seller_id"`
	Details      string    `json:"details"`
	Price        string    `json:"price"`
	DeliveryDays int       `json:"delivery_days"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToProposalResponse(p *entity.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		SellerID:     p.SellerID,
		Details:      p.Details,
		Price:        p.Price.StringFixed(2),
		DeliveryDays: p.DeliveryDays,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func ToProposalResponses(proposals []*entity.Proposal) []ProposalResponse {
	responses := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		responses = append(responses, ToProposalResponse(p))
	}
	return responses
}
