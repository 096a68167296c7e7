package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjectValidation(t *testing.T) {
	buyer := uuid.New()
	future := time.Now().Add(24 * time.Hour)

	p, err := NewProject(buyer, "Лендинг", "Сверстать лендинг", decimal.NewFromInt(1000), future)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProjectStatusOpen, p.Status)
	assert.True(t, p.IsOwnedBy(buyer))

	_, err = NewProject(buyer, "Лендинг", "desc", decimal.Zero, future)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewProject(buyer, "Лендинг", "desc", decimal.NewFromInt(10), time.Now().Add(-time.Hour))
	assert.True(t, apperror.IsValidation(err))

	_, err = NewProject(buyer, " ", "desc", decimal.NewFromInt(10), future)
	assert.True(t, apperror.IsValidation(err))
}

func TestProjectStartWorkOnlyFromOpenOrPending(t *testing.T) {
	p := &Project{Status: valueobject.ProjectStatusPending}
	require.NoError(t, p.StartWork())
	assert.Equal(t, valueobject.ProjectStatusInProgress, p.Status)

	err := p.StartWork()
	assert.True(t, apperror.IsInvalidState(err))
}

func TestProposalTransitions(t *testing.T) {
	p, err := NewProposal(uuid.New(), uuid.New(), "Сделаю за 10 дней", decimal.NewFromInt(800), 10)
	require.NoError(t, err)
	assert.True(t, p.IsPending())

	require.NoError(t, p.Accept())
	assert.True(t, apperror.IsInvalidState(p.Accept()))
	assert.True(t, apperror.IsInvalidState(p.Reject()))
	require.NoError(t, p.Complete())
}

func TestNewProposalValidation(t *testing.T) {
	_, err := NewProposal(uuid.New(), uuid.New(), "", decimal.NewFromInt(1), 1)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewProposal(uuid.New(), uuid.New(), "x", decimal.NewFromInt(-1), 1)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewProposal(uuid.New(), uuid.New(), "x", decimal.NewFromInt(1), 0)
	assert.True(t, apperror.IsValidation(err))
}

func TestNewPaymentComputesCommission(t *testing.T) {
	proposal := &Proposal{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		SellerID:  uuid.New(),
		Price:     decimal.NewFromInt(800),
		Status:    valueobject.ProposalStatusAccepted,
	}
	buyer := uuid.New()

	payment, err := NewPayment(proposal, buyer, "USD", "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "120.00", payment.Commission.StringFixed(2))
	assert.Equal(t, "680.00", payment.Net().StringFixed(2))
	assert.Equal(t, "usd", payment.Currency)
	assert.Equal(t, valueobject.PaymentStatusPending, payment.Status)
	assert.True(t, payment.IsParticipant(buyer))
	assert.True(t, payment.IsParticipant(proposal.SellerID))

	proposal.Status = valueobject.ProposalStatusPending
	_, err = NewPayment(proposal, buyer, "usd", "pi_124")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestNewMessage(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	m, err := NewMessage(uuid.New(), a, b, "  привет ")
	require.NoError(t, err)
	assert.Equal(t, "привет", m.Content)
	assert.False(t, m.Read)

	_, err = NewMessage(uuid.New(), a, a, "себе")
	assert.True(t, apperror.IsValidation(err))

	_, err = NewMessage(uuid.New(), a, b, "   ")
	assert.True(t, apperror.IsValidation(err))
}

func TestNewUserNormalizesEmail(t *testing.T) {
	u, err := NewUser(" Buyer@Example.COM ", "Ann", "hash", valueobject.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", u.Email)
	assert.True(t, u.IsBuyer())

	_, err = NewUser("nope", "Ann", "hash", valueobject.RoleBuyer)
	assert.Error(t, err)
}
