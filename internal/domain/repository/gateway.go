package repository

import "context"

const (
	IntentStatusSucceeded  = "succeeded"
	IntentStatusProcessing = "processing"
	IntentStatusCanceled   = "canceled"
)

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

func (i *PaymentIntent) Succeeded() bool {
	return i.Status == IntentStatusSucceeded
}

// Settling: деньги уже списаны или списываются.
func (i *PaymentIntent) Settling() bool {
	return i.Status == IntentStatusSucceeded || i.Status == IntentStatusProcessing
}

// PaymentGateway — внешний платёжный провайдер.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// CancelIntent закрывает intent, чтобы старый client secret нельзя было оплатить.
	CancelIntent(ctx context.Context, id string) error
}

type GatewayEventType string

const (
	GatewayEventSucceeded  GatewayEventType = "succeeded"
	GatewayEventProcessing GatewayEventType = "processing"
	GatewayEventFailed     GatewayEventType = "failed"
	GatewayEventIgnored    GatewayEventType = "ignored"
)

type GatewayEvent struct {
	ID                string
	Type              GatewayEventType
	ExternalReference string
}

// WebhookVerifier проверяет подпись вебхука и разбирает событие.
type WebhookVerifier interface {
	ParseEvent(payload []byte, signature string) (*GatewayEvent, error)
}
