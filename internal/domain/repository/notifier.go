package repository

import "github.com/ignatzorin/exwork-backend/internal/domain/entity"

// Notifier ставит уведомление в очередь и никогда не блокирует вызывающего.
type Notifier interface {
	Notify(n entity.Notification)
}
