package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ProposalRepository struct {
	q sqlx.ExtContext
}

type proposalRow struct {
	ID           uuid.UUID       `db:"id"`
	ProjectID    uuid.UUID       `db:"project_id"`
	SellerID     uuid.UUID       `db:"seller_id"`
	Details      string          `db:"details"`
	Price        decimal.Decimal `db:"price"`
	DeliveryDays int             `db:"delivery_days"`
	Status       string          `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r proposalRow) toEntity() *entity.Proposal {
	return &entity.Proposal{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		SellerID:     r.SellerID,
		Details:      r.Details,
		Price:        r.Price,
		DeliveryDays: r.DeliveryDays,
		Status:       valueobject.ProposalStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const proposalColumns = `id, project_id, seller_id, details, price, delivery_days, status, created_at, updated_at`

func (r *ProposalRepository) Create(ctx context.Context, p *entity.Proposal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO proposals (`+proposalColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.ProjectID, p.SellerID, p.Details, p.Price, p.DeliveryDays, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err, "не удалось создать предложение")
}

func (r *ProposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var row proposalRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, mapError(err, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *ProposalRepository) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.Proposal, error) {
	return r.findMany(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE project_id = $1 ORDER BY created_at`, projectID)
}

func (r *ProposalRepository) FindByProjectAndSeller(ctx context.Context, projectID, sellerID uuid.UUID) (*entity.Proposal, error) {
	var row proposalRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+proposalColumns+` FROM proposals WHERE project_id = $1 AND seller_id = $2`, projectID, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *ProposalRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Proposal, error) {
	return r.findMany(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE seller_id = $1 ORDER BY created_at DESC`, sellerID)
}

func (r *ProposalRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Proposal, error) {
	var rows []proposalRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, mapError(err, "не удалось получить предложения")
	}
	proposals := make([]*entity.Proposal, 0, len(rows))
	for _, row := range rows {
		proposals = append(proposals, row.toEntity())
	}
	return proposals, nil
}

func (r *ProposalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.ProposalStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return mapError(err, "не удалось обновить статус предложения")
	}
	return requireAffected(res, apperror.ErrProposalNotFound)
}
