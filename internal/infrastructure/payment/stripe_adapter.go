// Package payment — адаптеры платёжного шлюза.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeGateway создаёт и читает PaymentIntent через Stripe API.
type StripeGateway struct {
	intents paymentintent.Client
}

var _ repository.PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway не трогает глобальный stripe.Key: ключ и backend живут в клиенте.
func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	return newStripeGateway(secretKey, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(1),
	})
}

func newStripeGateway(secretKey string, cfg *stripe.BackendConfig) *StripeGateway {
	return &StripeGateway{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Key: secretKey,
		},
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*repository.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*repository.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent %s: %w", id, err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := g.intents.Cancel(id, params); err != nil {
		return fmt.Errorf("stripe: cancel payment intent %s: %w", id, err)
	}
	return nil
}

func toIntent(pi *stripe.PaymentIntent) *repository.PaymentIntent {
	return &repository.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
}

// StripeWebhookVerifier проверяет заголовок Stripe-Signature и разбирает событие.
type StripeWebhookVerifier struct {
	secret string
}

var _ repository.WebhookVerifier = (*StripeWebhookVerifier)(nil)

func NewStripeWebhookVerifier(secret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{secret: secret}
}

var stripeEventTypes = map[string]repository.GatewayEventType{
	"payment_intent.succeeded":      repository.GatewayEventSucceeded,
	"payment_intent.processing":     repository.GatewayEventProcessing,
	"payment_intent.payment_failed": repository.GatewayEventFailed,
}

func (v *StripeWebhookVerifier) ParseEvent(payload []byte, signature string) (*repository.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: verify webhook: %w", err)
	}

	kind, ok := stripeEventTypes[string(event.Type)]
	if !ok {
		return &repository.GatewayEvent{ID: event.ID, Type: repository.GatewayEventIgnored}, nil
	}

	var pi stripe.PaymentIntent
	if event.Data == nil {
		return nil, fmt.Errorf("stripe: event %s has no data", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent from %s: %w", event.ID, err)
	}

	return &repository.GatewayEvent{
		ID:                event.ID,
		Type:              kind,
		ExternalReference: pi.ID,
	}, nil
}
