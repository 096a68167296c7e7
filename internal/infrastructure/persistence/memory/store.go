// Package memory — хранилище сущностей в памяти процесса для разработки и тестов.
package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

// lockStripes — число мьютексов на все проекты. Разные проекты могут
// делить полосу, поэтому единицы работы не должны вкладываться друг в друга.
const lockStripes = 64

// Store хранит сущности в картах. mu защищает сами карты,
// блокировки проектов сериализуют единицы работы над одним проектом.
type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*entity.User
	projects  map[uuid.UUID]*entity.Project
	proposals map[uuid.UUID]*entity.Proposal
	payments  map[uuid.UUID]*entity.Payment
	messages  []*entity.Message

	projectLocks [lockStripes]sync.Mutex
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*entity.User),
		projects:  make(map[uuid.UUID]*entity.Project),
		proposals: make(map[uuid.UUID]*entity.Proposal),
		payments:  make(map[uuid.UUID]*entity.Payment),
	}
}

func (s *Store) Users() repository.UserRepository         { return userRepo{s} }
func (s *Store) Projects() repository.ProjectRepository   { return projectRepo{s} }
func (s *Store) Proposals() repository.ProposalRepository { return proposalRepo{s} }
func (s *Store) Payments() repository.PaymentRepository   { return paymentRepo{s} }
func (s *Store) Messages() repository.MessageRepository   { return messageRepo{s} }

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func lockStripe(id uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return int(h.Sum32() % lockStripes)
}

func (s *Store) projectLock(id uuid.UUID) *sync.Mutex {
	return &s.projectLocks[lockStripe(id)]
}

// WithinProjectLock не откатывает изменения при ошибке fn: вызывающий
// обязан проверить все условия до первой записи.
func (s *Store) WithinProjectLock(ctx context.Context, projectID uuid.UUID, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.projectLock(projectID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	_, ok := s.projects[projectID]
	s.mu.RUnlock()
	if !ok {
		return apperror.ErrProjectNotFound
	}
	return fn(s)
}
