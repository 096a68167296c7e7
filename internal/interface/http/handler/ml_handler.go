package handler

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
)

// MLClient — прокси к сервису рекомендаций и аналитики.
type MLClient interface {
	RecommendProjects(ctx context.Context, sellerID uuid.UUID, limit int) (json.RawMessage, error)
	RecommendSellers(ctx context.Context, projectID uuid.UUID, limit int) (json.RawMessage, error)
	MarketAnalytics(ctx context.Context, period, category string) (json.RawMessage, error)
	BuyerAnalytics(ctx context.Context, buyerID uuid.UUID) (json.RawMessage, error)
	SellerAnalytics(ctx context.Context, sellerID uuid.UUID) (json.RawMessage, error)
	PredictPrice(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
	EvaluateProposal(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
}

const maxMLBody = 1 << 20

type MLHandler struct {
	client MLClient
}

func NewMLHandler(client MLClient) *MLHandler {
	return &MLHandler{client: client}
}

// RecommendProjects проксирует /api/recommend/projects/{id} с UUID продавца.
// ML-сервис должен принимать UUID в пути: развёртывание с целочисленными
// маршрутами ответит 404, и клиент получит NOT_FOUND.
func (h *MLHandler) RecommendProjects(c *gin.Context) {
	sellerID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID продавца")
		return
	}
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.RecommendProjects(ctx, sellerID, parseIntQuery(c, "limit", 0))
	})
}

// RecommendSellers: UUID проекта уходит в путь как есть, см. RecommendProjects.
func (h *MLHandler) RecommendSellers(c *gin.Context) {
	projectID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID проекта")
		return
	}
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.RecommendSellers(ctx, projectID, parseIntQuery(c, "limit", 0))
	})
}

func (h *MLHandler) MarketAnalytics(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	category := c.Query("category")
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.MarketAnalytics(ctx, period, category)
	})
}

// BuyerAnalytics и SellerAnalytics тоже требуют ML-сервис с UUID-идентификаторами.
func (h *MLHandler) BuyerAnalytics(c *gin.Context) {
	buyerID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID покупателя")
		return
	}
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.BuyerAnalytics(ctx, buyerID)
	})
}

func (h *MLHandler) SellerAnalytics(c *gin.Context) {
	sellerID, err := paramUUID(c, "id")
	if err != nil {
		response.BadRequest(c, "некорректный ID продавца")
		return
	}
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.SellerAnalytics(ctx, sellerID)
	})
}

func (h *MLHandler) PredictPrice(c *gin.Context) {
	body, ok := readJSONBody(c)
	if !ok {
		return
	}
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.PredictPrice(ctx, body)
	})
}

func (h *MLHandler) EvaluateProposal(c *gin.Context) {
	body, ok := readJSONBody(c)
	if !ok {
		return
	}
	h.proxy(c, func(ctx context.Context) (json.RawMessage, error) {
		return h.client.EvaluateProposal(ctx, body)
	})
}

// proxy отдаёт ответ ML-сервиса как есть, в обёртке success/data.
func (h *MLHandler) proxy(c *gin.Context, call func(ctx context.Context) (json.RawMessage, error)) {
	data, err := call(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}

func readJSONBody(c *gin.Context) (json.RawMessage, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMLBody))
	if err != nil || !json.Valid(body) {
		response.BadRequest(c, "тело запроса должно быть JSON")
		return nil, false
	}
	return body, true
}
