package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/infrastructure/persistence/memory"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/ignatzorin/exwork-backend/internal/usecase/proposal"
	"github.com/ignatzorin/exwork-backend/internal/usecase/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*repository.PaymentIntent, error) {
	args := m.Called(ctx, amountCents, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PaymentIntent), args.Error(1)
}

func (m *mockGateway) GetIntent(ctx context.Context, id string) (*repository.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PaymentIntent), args.Error(1)
}

func (m *mockGateway) CancelIntent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) ParseEvent(payload []byte, signature string) (*repository.GatewayEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.GatewayEvent), args.Error(1)
}

type countingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (n *countingNotifier) Notify(msg entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	store    *memory.Store
	gateway  *mockGateway
	notifier *countingNotifier
	buyer    uuid.UUID
	seller   uuid.UUID
	accepted *entity.Proposal
	initiate *settlement.InitiatePaymentUseCase
	confirm  *settlement.ConfirmPaymentUseCase
}

// newFixture повторяет сценарий: проект на $1000, предложение продавца на $800 принято.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.Discard()
	ctx := context.Background()
	store := memory.NewStore()
	notifier := &countingNotifier{}
	gateway := &mockGateway{}
	buyer, seller := uuid.New(), uuid.New()

	project, err := entity.NewProject(buyer, "Сайт", "Корпоративный сайт", decimal.NewFromInt(1000), time.Now().Add(240*time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Projects().Create(ctx, project))

	p, err := proposal.NewSubmitProposalUseCase(store, notifier).Execute(ctx, project.ID, seller, proposal.SubmitProposalInput{
		Details: "Сделаю", Price: decimal.NewFromInt(800), DeliveryDays: 10,
	})
	require.NoError(t, err)
	accepted, err := proposal.NewUpdateProposalStatusUseCase(store, notifier).Accept(ctx, p.ID, buyer)
	require.NoError(t, err)
	notifier.sent = nil

	return &fixture{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		buyer:    buyer,
		seller:   seller,
		accepted: accepted,
		initiate: settlement.NewInitiatePaymentUseCase(store, gateway, "usd", time.Second),
		confirm:  settlement.NewConfirmPaymentUseCase(store, gateway, notifier, time.Second),
	}
}

func (f *fixture) expectIntent(id string) {
	f.gateway.On("CreateIntent", mock.Anything, int64(80000), "usd", mock.AnythingOfType("map[string]string")).
		Return(&repository.PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil).Once()
}

func TestInitiatePaymentComputesCommission(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")

	res, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	assert.Equal(t, "pi_R_secret", res.ClientSecret)
	assert.Equal(t, valueobject.PaymentStatusPending, res.Payment.Status)
	assert.Equal(t, "800.00", res.Payment.Amount.StringFixed(2))
	assert.Equal(t, "120.00", res.Payment.Commission.StringFixed(2))
	assert.Equal(t, "pi_R", res.Payment.ExternalReference)

	stored, err := f.store.Payments().FindByReference(context.Background(), "pi_R")
	require.NoError(t, err)
	assert.Equal(t, res.Payment.ID, stored.ID)
	f.gateway.AssertExpectations(t)
}

func TestInitiatePaymentIsIdempotentPerProposal(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	f.gateway.On("GetIntent", mock.Anything, "pi_R").
		Return(&repository.PaymentIntent{ID: "pi_R", ClientSecret: "pi_R_secret", Status: "requires_payment_method"}, nil)

	first, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)
	second, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	assert.True(t, second.Existing)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, "pi_R_secret", second.ClientSecret)
	f.gateway.AssertNumberOfCalls(t, "CreateIntent", 1)
}

func TestInitiatePaymentForeignBuyer(t *testing.T) {
	f := newFixture(t)

	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))
	f.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePaymentRequiresAcceptedProposal(t *testing.T) {
	f := newFixture(t)
	project, err := f.store.Projects().FindByID(context.Background(), f.accepted.ProjectID)
	require.NoError(t, err)

	pending, err := entity.NewProposal(project.ID, uuid.New(), "x", decimal.NewFromInt(10), 1)
	require.NoError(t, err)
	require.NoError(t, f.store.Proposals().Create(context.Background(), pending))

	_, err = f.initiate.Execute(context.Background(), pending.ID, f.buyer)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestInitiatePaymentGatewayFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreateIntent", mock.Anything, int64(80000), "usd", mock.Anything).
		Return(nil, errors.New("card_declined")).Once()

	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	assert.True(t, apperror.IsUpstream(err))

	payments, err := f.store.Payments().FindByProposal(context.Background(), f.accepted.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	payment, err := f.confirm.Execute(context.Background(), "pi_R")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "680.00", payment.Payout().Net.StringFixed(2))
	assert.Equal(t, 2, f.notifier.count())

	again, err := f.confirm.Execute(context.Background(), "pi_R")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusCompleted, again.Status)
	assert.Equal(t, "120.00", again.Commission.StringFixed(2))
	assert.Equal(t, 2, f.notifier.count())

	kinds := map[uuid.UUID]entity.NotificationKind{}
	for _, n := range f.notifier.sent {
		kinds[n.RecipientID] = n.Kind
	}
	assert.Equal(t, entity.NotificationPaymentCompleted, kinds[f.buyer])
	assert.Equal(t, entity.NotificationPaymentReceived, kinds[f.seller])
	assert.Equal(t, "800.00", f.notifier.sent[0].Params["amount"])
	assert.Equal(t, "680.00", f.notifier.sent[1].Params["net"])
}

func TestConfirmPaymentConcurrentDeliveriesNotifyOnce(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.confirm.Execute(context.Background(), "pi_R")
			assert.NoError(t, err)
			assert.Equal(t, valueobject.PaymentStatusCompleted, p.Status)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, f.notifier.count())
}

func TestConfirmUnknownReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.confirm.Execute(context.Background(), "pi_missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestConfirmForUserChecksGateway(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	_, err = f.confirm.ExecuteForUser(context.Background(), "pi_R", f.seller)
	assert.True(t, apperror.IsForbidden(err))

	f.gateway.On("GetIntent", mock.Anything, "pi_R").
		Return(&repository.PaymentIntent{ID: "pi_R", Status: "requires_payment_method"}, nil).Once()
	_, err = f.confirm.ExecuteForUser(context.Background(), "pi_R", f.buyer)
	assert.True(t, apperror.IsInvalidState(err))

	f.gateway.On("GetIntent", mock.Anything, "pi_R").
		Return(&repository.PaymentIntent{ID: "pi_R", Status: "succeeded"}, nil).Once()
	p, err := f.confirm.ExecuteForUser(context.Background(), "pi_R", f.buyer)
	require.NoError(t, err)
	assert.True(t, p.IsCompleted())
}

func TestFailedPaymentAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_1")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	fail := settlement.NewFailPaymentUseCase(f.store)
	failed, err := fail.Execute(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.True(t, failed.IsFailed())

	_, err = fail.Execute(context.Background(), "pi_1")
	require.NoError(t, err)

	// Старый интент ещё можно оплатить: перед новым его нужно отменить.
	f.gateway.On("GetIntent", mock.Anything, "pi_1").
		Return(&repository.PaymentIntent{ID: "pi_1", Status: "requires_payment_method"}, nil).Once()
	f.gateway.On("CancelIntent", mock.Anything, "pi_1").Return(nil).Once()
	f.expectIntent("pi_2")

	retry, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)
	assert.False(t, retry.Existing)
	assert.Equal(t, "pi_2", retry.Payment.ExternalReference)
	f.gateway.AssertExpectations(t)

	// Отменённый интент повторно не отменяется.
	_, err = fail.Execute(context.Background(), "pi_2")
	require.NoError(t, err)
	f.gateway.On("GetIntent", mock.Anything, "pi_1").
		Return(&repository.PaymentIntent{ID: "pi_1", Status: repository.IntentStatusCanceled}, nil).Once()
	f.gateway.On("GetIntent", mock.Anything, "pi_2").
		Return(&repository.PaymentIntent{ID: "pi_2", Status: repository.IntentStatusCanceled}, nil).Once()
	f.expectIntent("pi_3")

	third, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, "pi_3", third.Payment.ExternalReference)
	f.gateway.AssertNumberOfCalls(t, "CancelIntent", 1)
}

func TestFailedAttemptThenGatewaySuccessCompletes(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_1")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	verifier := &mockVerifier{}
	uc := settlement.NewHandleGatewayEventUseCase(verifier, f.confirm,
		settlement.NewFailPaymentUseCase(f.store), settlement.NewMarkProcessingUseCase(f.store))
	verifier.On("ParseEvent", []byte("declined"), "sig").
		Return(&repository.GatewayEvent{ID: "evt_1", Type: repository.GatewayEventFailed, ExternalReference: "pi_1"}, nil)
	verifier.On("ParseEvent", []byte("paid"), "sig").
		Return(&repository.GatewayEvent{ID: "evt_2", Type: repository.GatewayEventSucceeded, ExternalReference: "pi_1"}, nil)

	require.NoError(t, uc.Execute(context.Background(), []byte("declined"), "sig"))
	p, err := f.store.Payments().FindByReference(context.Background(), "pi_1")
	require.NoError(t, err)
	require.True(t, p.IsFailed())

	// Покупатель повторил оплату тем же client secret.
	require.NoError(t, uc.Execute(context.Background(), []byte("paid"), "sig"))
	p, err = f.store.Payments().FindByReference(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusCompleted, p.Status)
	assert.Equal(t, 2, f.notifier.count())

	// Поздний failed не откатывает оплату.
	require.NoError(t, uc.Execute(context.Background(), []byte("declined"), "sig"))
	p, err = f.store.Payments().FindByReference(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.True(t, p.IsCompleted())

	_, err = f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	assert.True(t, apperror.IsInvalidState(err))
	f.gateway.AssertNumberOfCalls(t, "CreateIntent", 1)
}

func TestBuyerConfirmsFailedPaymentAfterGatewaySuccess(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_1")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)
	_, err = settlement.NewFailPaymentUseCase(f.store).Execute(context.Background(), "pi_1")
	require.NoError(t, err)

	f.gateway.On("GetIntent", mock.Anything, "pi_1").
		Return(&repository.PaymentIntent{ID: "pi_1", Status: repository.IntentStatusSucceeded}, nil).Once()
	p, err := f.confirm.ExecuteForUser(context.Background(), "pi_1", f.buyer)
	require.NoError(t, err)
	assert.True(t, p.IsCompleted())
	assert.Equal(t, 2, f.notifier.count())
}

func TestReinitiateRefusedWhileOldIntentSettles(t *testing.T) {
	for _, status := range []string{repository.IntentStatusSucceeded, repository.IntentStatusProcessing} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			f.expectIntent("pi_1")
			_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
			require.NoError(t, err)
			_, err = settlement.NewFailPaymentUseCase(f.store).Execute(context.Background(), "pi_1")
			require.NoError(t, err)

			f.gateway.On("GetIntent", mock.Anything, "pi_1").
				Return(&repository.PaymentIntent{ID: "pi_1", Status: status}, nil).Once()

			_, err = f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
			assert.True(t, apperror.IsInvalidState(err))
			f.gateway.AssertNumberOfCalls(t, "CreateIntent", 1)
			f.gateway.AssertNotCalled(t, "CancelIntent", mock.Anything, mock.Anything)

			payments, err := f.store.Payments().FindByProposal(context.Background(), f.accepted.ID)
			require.NoError(t, err)
			assert.Len(t, payments, 1)
		})
	}
}

func TestReinitiateAbortsWhenCancelFails(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_1")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)
	_, err = settlement.NewFailPaymentUseCase(f.store).Execute(context.Background(), "pi_1")
	require.NoError(t, err)

	f.gateway.On("GetIntent", mock.Anything, "pi_1").
		Return(&repository.PaymentIntent{ID: "pi_1", Status: "requires_payment_method"}, nil).Once()
	f.gateway.On("CancelIntent", mock.Anything, "pi_1").Return(errors.New("payment_intent_unexpected_state")).Once()

	_, err = f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	assert.ErrorIs(t, err, apperror.ErrPaymentGateway)
	f.gateway.AssertNumberOfCalls(t, "CreateIntent", 1)
}

func TestGatewayOutageMapsToPaymentGatewayError(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	f.gateway.On("GetIntent", mock.Anything, "pi_R").Return(nil, errors.New("connection reset")).Twice()

	_, err = f.confirm.ExecuteForUser(context.Background(), "pi_R", f.buyer)
	assert.ErrorIs(t, err, apperror.ErrPaymentGateway)

	_, err = f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	assert.ErrorIs(t, err, apperror.ErrPaymentGateway)
}

func TestCompletedPaymentCannotFailOrReinitiate(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)
	_, err = f.confirm.Execute(context.Background(), "pi_R")
	require.NoError(t, err)

	_, err = settlement.NewFailPaymentUseCase(f.store).Execute(context.Background(), "pi_R")
	assert.True(t, apperror.IsInvalidState(err))

	_, err = f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestHandleGatewayEvent(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	verifier := &mockVerifier{}
	uc := settlement.NewHandleGatewayEventUseCase(verifier, f.confirm,
		settlement.NewFailPaymentUseCase(f.store), settlement.NewMarkProcessingUseCase(f.store))

	verifier.On("ParseEvent", []byte("processing"), "sig").
		Return(&repository.GatewayEvent{ID: "evt_1", Type: repository.GatewayEventProcessing, ExternalReference: "pi_R"}, nil)
	verifier.On("ParseEvent", []byte("succeeded"), "sig").
		Return(&repository.GatewayEvent{ID: "evt_2", Type: repository.GatewayEventSucceeded, ExternalReference: "pi_R"}, nil)
	verifier.On("ParseEvent", []byte("unknown"), "sig").
		Return(&repository.GatewayEvent{ID: "evt_3", Type: repository.GatewayEventSucceeded, ExternalReference: "pi_other"}, nil)
	verifier.On("ParseEvent", []byte("forged"), "bad").
		Return(nil, errors.New("signature mismatch"))

	require.NoError(t, uc.Execute(context.Background(), []byte("processing"), "sig"))
	p, err := f.store.Payments().FindByReference(context.Background(), "pi_R")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusProcessing, p.Status)

	require.NoError(t, uc.Execute(context.Background(), []byte("succeeded"), "sig"))
	require.NoError(t, uc.Execute(context.Background(), []byte("succeeded"), "sig"))
	require.NoError(t, uc.Execute(context.Background(), []byte("processing"), "sig"))
	p, err = f.store.Payments().FindByReference(context.Background(), "pi_R")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusCompleted, p.Status)
	assert.Equal(t, 2, f.notifier.count())

	assert.NoError(t, uc.Execute(context.Background(), []byte("unknown"), "sig"))

	err = uc.Execute(context.Background(), []byte("forged"), "bad")
	assert.True(t, apperror.IsValidation(err))
}

func TestListPaymentsByRole(t *testing.T) {
	f := newFixture(t)
	f.expectIntent("pi_R")
	_, err := f.initiate.Execute(context.Background(), f.accepted.ID, f.buyer)
	require.NoError(t, err)

	list := settlement.NewListPaymentsUseCase(f.store)
	mine, err := list.Execute(context.Background(), f.buyer, valueobject.RoleBuyer)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	incoming, err := list.Execute(context.Background(), f.seller, valueobject.RoleSeller)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	none, err := list.Execute(context.Background(), f.seller, valueobject.RoleBuyer)
	require.NoError(t, err)
	assert.Empty(t, none)
}
