package entity

import "github.com/google/uuid"

type NotificationKind string

const (
	NotificationProposalReceived NotificationKind = "proposal_received"
	NotificationProposalAccepted NotificationKind = "proposal_accepted"
	NotificationProposalRejected NotificationKind = "proposal_rejected"
	NotificationPaymentReceived  NotificationKind = "payment_received"
	NotificationPaymentCompleted NotificationKind = "payment_completed"
	NotificationMessageReceived  NotificationKind = "message_received"
)

// Notification — событие для получателя; Params подставляются в шаблон.
type Notification struct {
	RecipientID    uuid.UUID
	RecipientEmail string
	Kind           NotificationKind
	Params         map[string]string
}
