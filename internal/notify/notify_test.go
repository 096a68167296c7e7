package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/infrastructure/persistence/memory"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Name() string { return "mock" }

func (m *mockSender) Send(ctx context.Context, n entity.Notification, msg Message) error {
	args := m.Called(ctx, n, msg)
	return args.Error(0)
}

// blockingSender держит воркер, пока тест не отпустит release.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSender) Name() string { return "blocking" }

func (b *blockingSender) Send(ctx context.Context, _ entity.Notification, _ Message) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestRenderPaymentTemplates(t *testing.T) {
	params := map[string]string{"amount": "1000.00", "commission": "150.00", "net": "850.00", "currency": "usd"}

	seller, err := Render(entity.Notification{Kind: entity.NotificationPaymentReceived, Params: params})
	require.NoError(t, err)
	assert.Contains(t, seller.Body, "850.00")

	buyer, err := Render(entity.Notification{Kind: entity.NotificationPaymentCompleted, Params: params})
	require.NoError(t, err)
	assert.Contains(t, buyer.Body, "1000.00")
	assert.NotContains(t, buyer.Body, "850.00")

	_, err = Render(entity.Notification{Kind: "unknown"})
	assert.Error(t, err)
}

func TestRenderMissingParamIsEmpty(t *testing.T) {
	msg, err := Render(entity.Notification{Kind: entity.NotificationProposalAccepted})
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "<no value>")
}

func TestDispatcherResolvesEmailAndContinuesAfterFailure(t *testing.T) {
	logger.Discard()
	store := memory.NewStore()
	user, err := entity.NewUser("seller@example.com", "Продавец", "hash", valueobject.RoleSeller)
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(context.Background(), user))

	failing := &mockSender{}
	failing.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	delivered := make(chan entity.Notification, 1)
	ok := &mockSender{}
	ok.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { delivered <- args.Get(1).(entity.Notification) }).
		Return(nil)

	d := NewDispatcher(store.Users(), Options{QueueSize: 4, Workers: 1, Timeout: time.Second}, failing, ok)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Notify(entity.Notification{
		RecipientID: user.ID,
		Kind:        entity.NotificationProposalAccepted,
		Params:      map[string]string{"project_title": "Лендинг"},
	})

	select {
	case n := <-delivered:
		assert.Equal(t, "seller@example.com", n.RecipientEmail)
	case <-time.After(time.Second):
		t.Fatal("уведомление не доставлено")
	}
	require.NoError(t, d.Shutdown(context.Background()))
	failing.AssertNumberOfCalls(t, "Send", 1)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	logger.Discard()
	blocker := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(nil, Options{QueueSize: 1, Workers: 1, Timeout: time.Second}, blocker)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	n := entity.Notification{RecipientID: uuid.New(), Kind: entity.NotificationMessageReceived}
	d.Notify(n)
	<-blocker.started

	done := make(chan struct{})
	go func() {
		// Одно помещается в очередь, остальные отбрасываются без блокировки.
		for i := 0; i < 10; i++ {
			d.Notify(n)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify заблокировался на полной очереди")
	}
	assert.Len(t, d.queue, 1)

	close(blocker.release)
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcherNotifyAfterShutdown(t *testing.T) {
	d := NewDispatcher(nil, Options{})
	require.NoError(t, d.Shutdown(context.Background()))
	assert.NotPanics(t, func() { d.Notify(entity.Notification{}) })
}

func TestMailSender(t *testing.T) {
	var got mailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewMailSender(srv.URL, "key-1", "noreply@exwork.local", srv.Client())
	err := s.Send(context.Background(),
		entity.Notification{RecipientEmail: "buyer@example.com"},
		Message{Subject: "Тема", Body: "Текст"})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", got.To)
	assert.Equal(t, "noreply@exwork.local", got.From)

	err = s.Send(context.Background(), entity.Notification{}, Message{})
	assert.ErrorIs(t, err, errNoRecipientEmail)
}

func TestMailSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewMailSender(srv.URL, "bad", "", srv.Client())
	err := s.Send(context.Background(), entity.Notification{RecipientEmail: "a@b.c"}, Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

type fakeHub struct {
	userID uuid.UUID
	event  string
}

func (h *fakeHub) BroadcastToUser(_ context.Context, userID uuid.UUID, event string, _ any) error {
	h.userID, h.event = userID, event
	return nil
}

func TestPushSender(t *testing.T) {
	hub := &fakeHub{}
	recipient := uuid.New()
	err := NewPushSender(hub).Send(context.Background(),
		entity.Notification{RecipientID: recipient, Kind: entity.NotificationPaymentReceived},
		Message{Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, recipient, hub.userID)
	assert.Equal(t, "payment_received", hub.event)
}
