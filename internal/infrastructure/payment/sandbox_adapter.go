package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
)

// SandboxGateway — шлюз для локального запуска без ключа Stripe.
// Намерение считается оплаченным сразу после создания.
type SandboxGateway struct {
	mu      sync.RWMutex
	intents map[string]*repository.PaymentIntent
}

var _ repository.PaymentGateway = (*SandboxGateway)(nil)

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{intents: make(map[string]*repository.PaymentIntent)}
}

func (g *SandboxGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*repository.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("sandbox: amount must be positive, got %d", amountCents)
	}

	id := "pi_sandbox_" + uuid.NewString()
	intent := &repository.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       repository.IntentStatusSucceeded,
	}

	g.mu.Lock()
	g.intents[id] = intent
	g.mu.Unlock()

	copied := *intent
	return &copied, nil
}

func (g *SandboxGateway) GetIntent(ctx context.Context, id string) (*repository.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	intent, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("sandbox: payment intent %s not found", id)
	}
	copied := *intent
	return &copied, nil
}

func (g *SandboxGateway) CancelIntent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[id]
	if !ok {
		return fmt.Errorf("sandbox: payment intent %s not found", id)
	}
	if intent.Status == repository.IntentStatusSucceeded {
		return fmt.Errorf("sandbox: payment intent %s already succeeded", id)
	}
	intent.Status = repository.IntentStatusCanceled
	return nil
}
