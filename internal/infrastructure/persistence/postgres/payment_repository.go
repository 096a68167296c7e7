package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	q sqlx.ExtContext
}

type paymentRow struct {
	ID                uuid.UUID       `db:"id"`
	ProjectID         uuid.UUID       `db:"project_id"`
	ProposalID        uuid.UUID       `db:"proposal_id"`
	BuyerID           uuid.UUID       `db:"buyer_id"`
	SellerID          uuid.UUID       `db:"seller_id"`
	Amount            decimal.Decimal `db:"amount"`
	Commission        decimal.Decimal `db:"commission"`
	Currency          string          `db:"currency"`
	Status            string          `db:"status"`
	ExternalReference string          `db:"external_reference"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r paymentRow) toEntity() *entity.Payment {
	return &entity.Payment{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		ProposalID:        r.ProposalID,
		BuyerID:           r.BuyerID,
		SellerID:          r.SellerID,
		Amount:            r.Amount,
		Commission:        r.Commission,
		Currency:          r.Currency,
		Status:            valueobject.PaymentStatus(r.Status),
		ExternalReference: r.ExternalReference,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

const paymentColumns = `id, project_id, proposal_id, buyer_id, seller_id, amount, commission, currency, status, external_reference, created_at, updated_at`

func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.ProjectID, p.ProposalID, p.BuyerID, p.SellerID, p.Amount, p.Commission,
		p.Currency, string(p.Status), p.ExternalReference, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err, "не удалось создать платёж")
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *PaymentRepository) FindByReference(ctx context.Context, externalReference string) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE external_reference = $1`, externalReference)
}

func (r *PaymentRepository) FindByProposal(ctx context.Context, proposalID uuid.UUID) ([]*entity.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments WHERE proposal_id = $1 ORDER BY created_at DESC`, proposalID)
}

func (r *PaymentRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*entity.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments WHERE buyer_id = $1 ORDER BY created_at DESC`, buyerID)
}

func (r *PaymentRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments WHERE seller_id = $1 ORDER BY created_at DESC`, sellerID)
}

// TransitionStatus — условный UPDATE: строка меняется, только если статус ещё в from.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []valueobject.PaymentStatus, to valueobject.PaymentStatus) (*entity.Payment, error) {
	states := make([]string, 0, len(from))
	for _, s := range from {
		states = append(states, string(s))
	}

	var row paymentRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`UPDATE payments SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+paymentColumns,
		id, string(to), pq.Array(states),
	)
	if err == nil {
		return row.toEntity(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError(err, "не удалось обновить статус платежа")
	}

	// Ноль строк: либо платежа нет, либо статус уже другой.
	if _, ferr := r.FindByID(ctx, id); ferr != nil {
		return nil, ferr
	}
	return nil, repository.ErrStaleState
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, arg interface{}) (*entity.Payment, error) {
	var row paymentRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, mapError(err, "не удалось получить платёж")
	}
	return row.toEntity(), nil
}

func (r *PaymentRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err, "не удалось получить платежи")
	}
	payments := make([]*entity.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toEntity())
	}
	return payments, nil
}
