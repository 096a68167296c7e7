package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreateProjectRequest: бюджет принимается строкой или числом, "1500.00" предпочтительнее.
type CreateProjectRequest struct {
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description" binding:"required,max=5000"`
	Budget      decimal.Decimal `json:"budget"`
	Deadline    time.Time       `json:"deadline" binding:"required"`
}

type UpdateProjectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ProjectResponse struct {
	ID          uuid.UUID `json:"id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      string    `json:"budget"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToProjectResponse(p *entity.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		BuyerID:     p.BuyerID,
		Title:       p.Title,
		Description: p.Description,
		Budget:      p.Budget.StringFixed(2),
		Deadline:    p.Deadline,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToProjectResponses(projects []*entity.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		responses = append(responses, ToProjectResponse(p))
	}
	return responses
}
