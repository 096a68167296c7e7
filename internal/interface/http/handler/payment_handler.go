package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/dto"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/response"
	"github.com/ignatzorin/exwork-backend/internal/usecase/settlement"
)

// maxWebhookBody — Stripe не присылает события крупнее 64 КБ.
const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	initiateUC *settlement.InitiatePaymentUseCase
	confirmUC  *settlement.ConfirmPaymentUseCase
	webhookUC  *settlement.HandleGatewayEventUseCase
	listUC     *settlement.ListPaymentsUseCase
}

func NewPaymentHandler(
	initiateUC *settlement.InitiatePaymentUseCase,
	confirmUC *settlement.ConfirmPaymentUseCase,
	webhookUC *settlement.HandleGatewayEventUseCase,
	listUC *settlement.ListPaymentsUseCase,
) *PaymentHandler {
	return &PaymentHandler{
		initiateUC: initiateUC,
		confirmUC:  confirmUC,
		webhookUC:  webhookUC,
		listUC:     listUC,
	}
}

// CreateIntent обслуживает POST /api/payments/intent.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	res, err := h.initiateUC.Execute(c.Request.Context(), req.ProposalID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToPaymentIntentResponse(res))
}

// Confirm обслуживает POST /api/payments/confirm после редиректа клиента.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "external_reference обязателен")
		return
	}

	payment, err := h.confirmUC.ExecuteForUser(c.Request.Context(), req.ExternalReference, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToPaymentResponse(payment))
}

// Webhook принимает события Stripe. Неизвестные события и платежи use case
// подтверждает сам; ошибка здесь означает неверную подпись (400) или сбой
// хранилища (5xx, шлюз повторит доставку).
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	if err := h.webhookUC.Execute(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ListMyPayments: покупатель видит свои оплаты, продавец свои выплаты.
func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	payments, err := h.listUC.Execute(c.Request.Context(), userID, getRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToPaymentResponses(payments))
}
