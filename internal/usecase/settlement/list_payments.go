package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

type ListPaymentsUseCase struct {
	store repository.Store
}

func NewListPaymentsUseCase(store repository.Store) *ListPaymentsUseCase {
	return &ListPaymentsUseCase{store: store}
}

// Execute — покупатель видит свои оплаты, продавец свои поступления.
func (uc *ListPaymentsUseCase) Execute(ctx context.Context, userID uuid.UUID, role valueobject.UserRole) ([]*entity.Payment, error) {
	var payments []*entity.Payment
	var err error
	switch role {
	case valueobject.RoleBuyer:
		payments, err = uc.store.Payments().FindByBuyer(ctx, userID)
	case valueobject.RoleSeller:
		payments, err = uc.store.Payments().FindBySeller(ctx, userID)
	default:
		return nil, apperror.ErrForbidden
	}
	if err != nil {
		return nil, apperror.Classify(err, apperror.ErrCodeDatabaseError, "не удалось получить платежи")
	}
	return payments, nil
}
