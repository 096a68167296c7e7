package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/usecase/settlement"
)

type InitiatePaymentRequest struct {
	ProposalID uuid.UUID `json:"proposal_id" binding:"required"`
}

type ConfirmPaymentRequest struct {
	ExternalReference string `json:"external_reference" binding:"required"`
}

type PayoutResponse struct {
	Amount     string `json:"amount"`
	Commission string `json:"commission"`
	Net        string `json:"net"`
}

type PaymentResponse struct {
	ID                uuid.UUID      `json:"id"`
	ProjectID         uuid.UUID      `json:"project_id"`
	ProposalID        uuid.UUID      `json:"proposal_id"`
	BuyerID           uuid.UUID      `json:"buyer_id"`
	SellerID          uuid.UUID      `json:"seller_id"`
	Currency          string         `json:"currency"`
	Status            string         `json:"status"`
	ExternalReference string         `json:"external_reference"`
	Payout            PayoutResponse `json:"payout"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type PaymentIntentResponse struct {
	ClientSecret      string          `json:"client_secret"`
	ExternalReference string          `json:"external_reference"`
	Existing          bool            `json:"existing"`
	Payment           PaymentResponse `json:"payment"`
}

func ToPaymentResponse(p *entity.Payment) PaymentResponse {
	payout := p.Payout()
	return PaymentResponse{
		ID:                p.ID,
		ProjectID:         p.ProjectID,
		ProposalID:        p.ProposalID,
		BuyerID:           p.BuyerID,
		SellerID:          p.SellerID,
		Currency:          p.Currency,
		Status:            string(p.Status),
		ExternalReference: p.ExternalReference,
		Payout: PayoutResponse{
			Amount:     payout.Amount.StringFixed(2),
			Commission: payout.Commission.StringFixed(2),
			Net:        payout.Net.StringFixed(2),
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func ToPaymentResponses(payments []*entity.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, ToPaymentResponse(p))
	}
	return responses
}

func ToPaymentIntentResponse(res *settlement.InitiatePaymentResult) PaymentIntentResponse {
	return PaymentIntentResponse{
		ClientSecret:      res.ClientSecret,
		ExternalReference: res.Payment.ExternalReference,
		Existing:          res.Existing,
		Payment:           ToPaymentResponse(res.Payment),
	}
}
