package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/pkg/apperror"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return apperror.ErrEmailTaken
		}
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

type projectRepo struct{ s *Store }

func (r projectRepo) Create(ctx context.Context, p *entity.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *p
	r.s.projects[p.ID] = &c
	return nil
}

func (r projectRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, apperror.ErrProjectNotFound
	}
	c := *p
	return &c, nil
}

func (r projectRepo) List(ctx context.Context, filter repository.ProjectFilter) ([]*entity.Project, int, error) {
	r.s.mu.RLock()
	var all []*entity.Project
	for _, p := range r.s.projects {
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		if filter.BuyerID != nil && p.BuyerID != *filter.BuyerID {
			continue
		}
		c := *p
		all = append(all, &c)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, filter.Limit, filter.Offset), len(all), nil
}

func (r projectRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.ProjectStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return apperror.ErrProjectNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

type proposalRepo struct{ s *Store }

func (r proposalRepo) Create(ctx context.Context, p *entity.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.proposals {
		if existing.ProjectID == p.ProjectID && existing.SellerID == p.SellerID {
			return apperror.ErrDuplicateProposal
		}
	}
	c := *p
	r.s.proposals[p.ID] = &c
	return nil
}

func (r proposalRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.proposals[id]
	if !ok {
		return nil, apperror.ErrProposalNotFound
	}
	c := *p
	return &c, nil
}

func (r proposalRepo) FindByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.Proposal, error) {
	return r.filter(func(p *entity.Proposal) bool { return p.ProjectID == projectID }), nil
}

func (r proposalRepo) FindByProjectAndSeller(ctx context.Context, projectID, sellerID uuid.UUID) (*entity.Proposal, error) {
	found := r.filter(func(p *entity.Proposal) bool { return p.ProjectID == projectID && p.SellerID == sellerID })
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r proposalRepo) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Proposal, error) {
	return r.filter(func(p *entity.Proposal) bool { return p.SellerID == sellerID }), nil
}

func (r proposalRepo) filter(match func(*entity.Proposal) bool) []*entity.Proposal {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*entity.Proposal, 0)
	for _, p := range r.s.proposals {
		if match(p) {
			c := *p
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

// UpdateStatus держит то же ограничение, что и частичный уникальный индекс в PostgreSQL.
func (r proposalRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.ProposalStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.proposals[id]
	if !ok {
		return apperror.ErrProposalNotFound
	}
	if status == valueobject.ProposalStatusAccepted {
		for _, other := range r.s.proposals {
			if other.ID != id && other.ProjectID == p.ProjectID && other.Status == valueobject.ProposalStatusAccepted {
				return apperror.New(apperror.ErrCodeInvalidState, "на проект уже принято другое предложение")
			}
		}
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payments {
		if existing.ExternalReference == p.ExternalReference {
			return apperror.New(apperror.ErrCodeConflict, "платёж с таким идентификатором уже существует")
		}
		if existing.ProposalID == p.ProposalID && !existing.IsFailed() {
			return apperror.New(apperror.ErrCodeConflict, "по предложению уже есть активный платёж")
		}
	}
	c := *p
	r.s.payments[p.ID] = &c
	return nil
}

func (r paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, apperror.ErrPaymentNotFound
	}
	c := *p
	return &c, nil
}

func (r paymentRepo) FindByReference(ctx context.Context, externalReference string) (*entity.Payment, error) {
	found := r.filter(func(p *entity.Payment) bool { return p.ExternalReference == externalReference })
	if len(found) == 0 {
		return nil, apperror.ErrPaymentNotFound
	}
	return found[0], nil
}

func (r paymentRepo) FindByProposal(ctx context.Context, proposalID uuid.UUID) ([]*entity.Payment, error) {
	return r.filter(func(p *entity.Payment) bool { return p.ProposalID == proposalID }), nil
}

func (r paymentRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*entity.Payment, error) {
	return r.filter(func(p *entity.Payment) bool { return p.BuyerID == buyerID }), nil
}

func (r paymentRepo) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Payment, error) {
	return r.filter(func(p *entity.Payment) bool { return p.SellerID == sellerID }), nil
}

func (r paymentRepo) filter(match func(*entity.Payment) bool) []*entity.Payment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*entity.Payment, 0)
	for _, p := range r.s.payments {
		if match(p) {
			c := *p
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func (r paymentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []valueobject.PaymentStatus, to valueobject.PaymentStatus) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, apperror.ErrPaymentNotFound
	}
	allowed := false
	for _, s := range from {
		if p.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, repository.ErrStaleState
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	c := *p
	return &c, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(ctx context.Context, m *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *m
	r.s.messages = append(r.s.messages, &c)
	return nil
}

func (r messageRepo) FindByProject(ctx context.Context, projectID, userID uuid.UUID) ([]*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*entity.Message, 0)
	for _, m := range r.s.messages {
		if m.ProjectID == projectID && m.Involves(userID) {
			c := *m
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r messageRepo) MarkReadForReceiver(ctx context.Context, projectID, receiverID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.messages {
		if m.ProjectID == projectID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
