package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/dto"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/usecase/project"
)

type ProjectHandler struct {
	createUC       *project.CreateProjectUseCase
	getUC          *project.GetProjectUseCase
	listUC         *project.ListProjectsUseCase
	changeStatusUC *project.ChangeProjectStatusUseCase
}

func NewProjectHandler(
	createUC *project.CreateProjectUseCase,
	getUC *project.GetProjectUseCase,
	listUC *project.ListProjectsUseCase,
	changeStatusUC *project.ChangeProjectStatusUseCase,
) *ProjectHandler {
	return &ProjectHandler{
		createUC:       createUC,
		getUC:          getUC,
		listUC:         listUC,
		changeStatusUC: changeStatusUC,
	}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), userID, project.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToProjectResponse(created))
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID проекта")
		return
	}

	p, err := h.getUC.Execute(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProjectResponse(p))
}

// ListProjects: ?status=open&buyer_id=...&limit=20&offset=0
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	filter := repository.ProjectFilter{
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("buyer_id"); raw != "" {
		buyerID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "некорректный buyer_id")
			return
		}
		filter.BuyerID = &buyerID
	}

	projects, total, err := h.listUC.Execute(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToProjectResponses(projects), total, clampLimit(filter.Limit), max(filter.Offset, 0))
}

func (h *ProjectHandler) UpdateProjectStatus(c *gin.Context) {
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

	var req dto.UpdateProjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	updated, err := h.changeStatusUC.Execute(c.Request.Context(), projectID, userID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProjectResponse(updated))
}

// clampLimit повторяет ограничения ListProjectsUseCase для блока pagination.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, 100)
}
