package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/dto"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/usecase/proposal"
)

type ProposalHandler struct {
	submitUC        *proposal.SubmitProposalUseCase
	updateStatusUC  *proposal.UpdateProposalStatusUseCase
	listForProjUC   *proposal.ListProjectProposalsUseCase
	listMyProposals *proposal.ListMyProposalsUseCase
}

func NewProposalHandler(
	submitUC *proposal.SubmitProposalUseCase,
	updateStatusUC *proposal.UpdateProposalStatusUseCase,
	listForProjUC *proposal.ListProjectProposalsUseCase,
	listMyProposals *proposal.ListMyProposalsUseCase,
) *ProposalHandler {
	return &ProposalHandler{
		submitUC:        submitUC,
		updateStatusUC:  updateStatusUC,
		listForProjUC:   listForProjUC,
		listMyProposals: listMyProposals,
	}
}

// SubmitProposal обслуживает POST /api/projects/:id/proposals.
func (h *ProposalHandler) SubmitProposal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	projectID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID проекта")
		return
	}

	var req dto.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.submitUC.Execute(c.Request.Context(), projectID, userID, proposal.SubmitProposalInput{
		Details:      req.Details,
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToProposalResponse(created))
}

// UpdateProposalStatus: покупатель принимает или отклоняет, продавец отзывает своё.
func (h *ProposalHandler) UpdateProposalStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposalID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID предложения")
		return
	}

	var req dto.UpdateProposalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "статус должен быть accepted, rejected или cancelled")
		return
	}

	updated, err := h.updateStatusUC.Execute(c.Request.Context(), proposalID, userID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponse(updated))
}

func (h *ProposalHandler) ListProjectProposals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	projectID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID проекта")
		return
	}

	proposals, err := h.listForProjUC.Execute(c.Request.Context(), projectID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponses(proposals))
}

func (h *ProposalHandler) ListMyProposals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposals, err := h.listMyProposals.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponses(proposals))
}
