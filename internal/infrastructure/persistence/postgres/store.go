// Package postgres — хранилище сущностей на PostgreSQL через sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/jmoiron/sqlx"
)

// Store реализует repository.Store. Вне WithinProjectLock каждый вызов
// выполняется отдельным запросом к пулу.
type Store struct {
	db *sqlx.DB
	unit
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, unit: unit{q: db}}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinProjectLock открывает транзакцию и берёт строку проекта FOR UPDATE.
// Параллельные единицы работы над тем же проектом ждут коммита.
func (s *Store) WithinProjectLock(ctx context.Context, projectID uuid.UUID, fn func(uow repository.UnitOfWork) error) error {
	return withTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		var id uuid.UUID
		err := tx.GetContext(ctx, &id, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrProjectNotFound
		}
		if err != nil {
			return fmt.Errorf("postgres: lock project %s: %w", projectID, err)
		}
		return fn(unit{q: tx})
	})
}

// unit привязывает репозитории к пулу или к транзакции.
type unit struct {
	q sqlx.ExtContext
}

func (u unit) Users() repository.UserRepository         { return &UserRepository{q: u.q} }
func (u unit) Projects() repository.ProjectRepository   { return &ProjectRepository{q: u.q} }
func (u unit) Proposals() repository.ProposalRepository { return &ProposalRepository{q: u.q} }
func (u unit) Payments() repository.PaymentRepository   { return &PaymentRepository{q: u.q} }
func (u unit) Messages() repository.MessageRepository   { return &MessageRepository{q: u.q} }

// withTransaction выполняет функцию внутри транзакции с откатом при ошибке или panic.
func withTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit transaction: %w", err)
	}
	return nil
}
