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
)

type UserRepository struct {
	q sqlx.ExtContext
}

type userRow struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toEntity() *entity.User {
	return &entity.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         valueobject.UserRole(r.Role),
		CreatedAt:    r.CreatedAt,
	}
}

const userColumns = `id, email, name, password_hash, role, created_at`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt,
	)
	return mapError(err, "не удалось создать пользователя")
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}) (*entity.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, mapError(err, "не удалось получить пользователя")
	}
	return row.toEntity(), nil
}
