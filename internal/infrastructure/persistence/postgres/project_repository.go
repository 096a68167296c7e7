package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ProjectRepository struct {
	q sqlx.ExtContext
}

type projectRow struct {
	ID          uuid.UUID       `db:"id"`
	BuyerID     uuid.UUID       `db:"buyer_id"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	Budget      decimal.Decimal `db:"budget"`
	Deadline    time.Time       `db:"deadline"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r projectRow) toEntity() *entity.Project {
	return &entity.Project{
		ID:          r.ID,
		BuyerID:     r.BuyerID,
		Title:       r.Title,
		Description: r.Description,
		Budget:      r.Budget,
		Deadline:    r.Deadline,
		Status:      valueobject.ProjectStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const projectColumns = `id, buyer_id, title, description, budget, deadline, status, created_at, updated_at`

func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.BuyerID, p.Title, p.Description, p.Budget, p.Deadline, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err, "не удалось создать проект")
}

func (r *ProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var row projectRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, mapError(err, "не удалось получить проект")
	}
	return row.toEntity(), nil
}

func (r *ProjectRepository) List(ctx context.Context, filter repository.ProjectFilter) ([]*entity.Project, int, error) {
	var where []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.BuyerID != nil {
		args = append(args, *filter.BuyerID)
		where = append(where, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM projects`+clause, args...); err != nil {
		return nil, 0, mapError(err, "не удалось посчитать проекты")
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM projects%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		projectColumns, clause, len(args)-1, len(args))

	var rows []projectRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "не удалось получить проекты")
	}
	projects := make([]*entity.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toEntity())
	}
	return projects, total, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.ProjectStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return mapError(err, "не удалось обновить статус проекта")
	}
	return requireAffected(res, apperror.ErrProjectNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "не удалось проверить результат обновления")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
