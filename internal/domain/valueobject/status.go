package valueobject

import "github.com/ignatzorin/exwork-backend/internal/pkg/apperror"

type UserRole string

const (
	RoleBuyer  UserRole = "buyer"
	RoleSeller UserRole = "seller"
)

func (r UserRole) IsValid() bool {
	return r == RoleBuyer || r == RoleSeller
}

func NewUserRole(role string) (UserRole, error) {
	r := UserRole(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "роль должна быть buyer или seller")
	}
	return r, nil
}

type ProjectStatus string

const (
	ProjectStatusOpen       ProjectStatus = "open"
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// pending — ручной этап проверки у покупателя, из него можно вернуться в open.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusOpen:       {ProjectStatusPending, ProjectStatusInProgress, ProjectStatusCancelled},
	ProjectStatusPending:    {ProjectStatusOpen, ProjectStatusInProgress, ProjectStatusCancelled},
	ProjectStatusInProgress: {ProjectStatusCompleted, ProjectStatusCancelled},
	ProjectStatusCompleted:  {},
	ProjectStatusCancelled:  {},
}

func (s ProjectStatus) IsValid() bool {
	_, ok := projectTransitions[s]
	return ok
}

func (s ProjectStatus) CanTransitionTo(newStatus ProjectStatus) bool {
	return contains(projectTransitions[s], newStatus)
}

// AcceptsProposals — новые предложения принимаются только открытым проектом.
func (s ProjectStatus) AcceptsProposals() bool {
	return s == ProjectStatusOpen
}

func NewProjectStatus(status string) (ProjectStatus, error) {
	s := ProjectStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус проекта")
	}
	return s, nil
}

type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusRejected  ProposalStatus = "rejected"
	ProposalStatusCompleted ProposalStatus = "completed"
	ProposalStatusCancelled ProposalStatus = "cancelled"
)

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalStatusPending:   {ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusCancelled},
	ProposalStatusAccepted:  {ProposalStatusCompleted, ProposalStatusCancelled},
	ProposalStatusRejected:  {},
	ProposalStatusCompleted: {},
	ProposalStatusCancelled: {},
}

func (s ProposalStatus) IsValid() bool {
	_, ok := proposalTransitions[s]
	return ok
}

func (s ProposalStatus) CanTransitionTo(newStatus ProposalStatus) bool {
	return contains(proposalTransitions[s], newStatus)
}

func NewProposalStatus(status string) (ProposalStatus, error) {
	s := ProposalStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {},
	// Отказ по попытке не окончателен: шлюз может позже подтвердить оплату.
	PaymentStatusFailed: {PaymentStatusCompleted},
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(newStatus PaymentStatus) bool {
	return contains(paymentTransitions[s], newStatus)
}

// PaymentSourcesFor возвращает статусы, из которых допустим переход в target.
func PaymentSourcesFor(target PaymentStatus) []PaymentStatus {
	var from []PaymentStatus
	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed} {
		if s.CanTransitionTo(target) {
			from = append(from, s)
		}
	}
	return from
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
