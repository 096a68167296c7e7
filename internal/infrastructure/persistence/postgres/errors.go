package postgres

import (
	"errors"

	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Имена ограничений из migrations/001_init.sql.
var uniqueConstraintErrors = map[string]error{
	"users_email_key":                    apperror.ErrEmailTaken,
	"proposals_project_seller_key":       apperror.ErrDuplicateProposal,
	"proposals_one_accepted_per_project": apperror.New(apperror.ErrCodeInvalidState, "на проект уже принято другое предложение"),
	"payments_external_reference_key":    apperror.New(apperror.ErrCodeConflict, "платёж с таким идентификатором уже существует"),
	"payments_one_active_per_proposal":   apperror.New(apperror.ErrCodeConflict, "по предложению уже есть активный платёж"),
}

// mapError переводит нарушение уникальности в бизнес-ошибку,
// остальное оборачивает как ошибку БД без деталей драйвера в сообщении.
func mapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if mapped, ok := uniqueConstraintErrors[pqErr.Constraint]; ok {
			return mapped
		}
		return apperror.Wrap(err, apperror.ErrCodeConflict, message)
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
