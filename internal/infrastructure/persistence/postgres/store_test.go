package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStore(sqlx.NewDb(mockDB, "postgres")), mock
}

var lockQuery = regexp.QuoteMeta(`SELECT id FROM projects WHERE id = $1 FOR UPDATE`)

func TestWithinProjectLockCommits(t *testing.T) {
	store, mock := newMockStore(t)
	projectID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(projectID.String()))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE projects SET status = $2`)).
		WithArgs(projectID, "in_progress").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinProjectLock(context.Background(), projectID, func(uow repository.UnitOfWork) error {
		return uow.Projects().UpdateStatus(context.Background(), projectID, valueobject.ProjectStatusInProgress)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinProjectLockMissingProject(t *testing.T) {
	store, mock := newMockStore(t)
	projectID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	called := false
	err := store.WithinProjectLock(context.Background(), projectID, func(repository.UnitOfWork) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, apperror.ErrProjectNotFound)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinProjectLockRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	projectID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(projectID.String()))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinProjectLock(context.Background(), projectID, func(repository.UnitOfWork) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	proposal := &entity.Proposal{
		ID:           uuid.New(),
		ProjectID:    uuid.New(),
		SellerID:     uuid.New(),
		Details:      "сделаю за неделю",
		Price:        decimal.RequireFromString("100.00"),
		DeliveryDays: 7,
		Status:       valueobject.ProposalStatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO proposals`)).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "proposals_project_seller_key"})

	err := store.Proposals().Create(context.Background(), proposal)
	assert.True(t, apperror.IsDuplicateSubmission(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalFindByProjectAndSellerAbsent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM proposals WHERE project_id = $1 AND seller_id = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := store.Proposals().FindByProjectAndSeller(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func paymentRows(id uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "proposal_id", "buyer_id", "seller_id", "amount", "commission",
		"currency", "status", "external_reference", "created_at", "updated_at",
	}).AddRow(
		id.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), "1000.00", "150.00",
		"usd", status, "pi_123", time.Now(), time.Now(),
	)
}

func TestPaymentTransitionStatus(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE payments SET status = $2`)).
		WithArgs(id, "completed", sqlmock.AnyArg()).
		WillReturnRows(paymentRows(id, "completed"))

	p, err := store.Payments().TransitionStatus(context.Background(), id,
		valueobject.PaymentSourcesFor(valueobject.PaymentStatusCompleted), valueobject.PaymentStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusCompleted, p.Status)
	assert.Equal(t, "850", p.Net().String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentTransitionStatusStale(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE payments SET status = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(paymentRows(id, "completed"))

	_, err := store.Payments().TransitionStatus(context.Background(), id,
		valueobject.PaymentSourcesFor(valueobject.PaymentStatusFailed), valueobject.PaymentStatusFailed)
	assert.ErrorIs(t, err, repository.ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentTransitionStatusMissing(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE payments SET status = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Payments().TransitionStatus(context.Background(), id,
		valueobject.PaymentSourcesFor(valueobject.PaymentStatusCompleted), valueobject.PaymentStatusCompleted)
	assert.True(t, apperror.IsNotFound(err))
}

func TestProjectListBuildsFilter(t *testing.T) {
	store, mock := newMockStore(t)
	buyer := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM projects WHERE status = $1 AND buyer_id = $2`)).
		WithArgs("open", buyer).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM projects WHERE status = $1 AND buyer_id = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`)).
		WithArgs("open", buyer, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "buyer_id", "title", "description", "budget", "deadline", "status", "created_at", "updated_at",
		}).AddRow(uuid.NewString(), buyer.String(), "Лендинг", "нужен лендинг", "500.00", time.Now().Add(48*time.Hour), "open", time.Now(), time.Now()))

	projects, total, err := store.Projects().List(context.Background(), repository.ProjectFilter{
		Status:  "open",
		BuyerID: &buyer,
		Limit:   20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, projects, 1)
	assert.Equal(t, buyer, projects[0].BuyerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadForReceiverCountsRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET read = TRUE`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Messages().MarkReadForReceiver(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
