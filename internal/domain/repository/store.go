package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
)

// ErrStaleState возвращается условным обновлением, когда текущий статус уже не совпадает с ожидаемым.
var ErrStaleState = errors.New("repository: stale state")

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

type ProjectFilter struct {
	Status  string
	BuyerID *uuid.UUID
	Limit   int
	Offset  int
}

type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*entity.Project, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.ProjectStatus) error
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *entity.Proposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.Proposal, error)
	// FindByProjectAndSeller возвращает nil без ошибки, если предложения нет.
	FindByProjectAndSeller(ctx context.Context, projectID, sellerID uuid.UUID) (*entity.Proposal, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Proposal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.ProposalStatus) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByReference(ctx context.Context, externalReference string) (*entity.Payment, error)
	// FindByProposal возвращает платежи по предложению, новые первыми.
	FindByProposal(ctx context.Context, proposalID uuid.UUID) ([]*entity.Payment, error)
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*entity.Payment, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Payment, error)
	// TransitionStatus меняет статус, только если текущий входит в from, иначе ErrStaleState.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []valueobject.PaymentStatus, to valueobject.PaymentStatus) (*entity.Payment, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	// FindByProject возвращает сообщения проекта, где userID отправитель или получатель.
	FindByProject(ctx context.Context, projectID, userID uuid.UUID) ([]*entity.Message, error)
	MarkReadForReceiver(ctx context.Context, projectID, receiverID uuid.UUID) (int, error)
}

// UnitOfWork — набор репозиториев, работающих в одной транзакции.
type UnitOfWork interface {
	Users() UserRepository
	Projects() ProjectRepository
	Proposals() ProposalRepository
	Payments() PaymentRepository
	Messages() MessageRepository
}

type Store interface {
	UnitOfWork
	// WithinProjectLock выполняет fn под эксклюзивной блокировкой проекта.
	// Если проекта нет, возвращает apperror.ErrProjectNotFound, fn не вызывается.
	WithinProjectLock(ctx context.Context, projectID uuid.UUID, fn func(uow UnitOfWork) error) error
	Ping(ctx context.Context) error
}
