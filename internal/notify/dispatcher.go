// Package notify доставляет уведомления в фоне: очередь, воркеры и каналы отправки.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/goroutine"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Dispatcher реализует repository.Notifier поверх ограниченной очереди.
// Ошибки доставки только логируются и никогда не доходят до вызывающего.
type Dispatcher struct {
	users   repository.UserRepository
	senders []Sender
	timeout time.Duration
	workers int

	mu     sync.RWMutex
	closed bool
	queue  chan entity.Notification
	wg     sync.WaitGroup
}

var _ repository.Notifier = (*Dispatcher)(nil)

type Options struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

func NewDispatcher(users repository.UserRepository, opts Options, senders ...Sender) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		users:   users,
		senders: senders,
		timeout: opts.Timeout,
		workers: opts.Workers,
		queue:   make(chan entity.Notification, opts.QueueSize),
	}
}

// Start запускает воркеры; они работают до Shutdown или отмены ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		goroutine.SafeGoWithContext(ctx, "notify-worker", func(ctx context.Context) {
			defer d.wg.Done()
			d.work(ctx)
		})
	}
}

// Notify не блокируется: при переполненной очереди уведомление отбрасывается.
func (d *Dispatcher) Notify(n entity.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.NotificationResult("dropped")
		return
	}

	select {
	case d.queue <- n:
	default:
		metrics.NotificationResult("dropped")
		logger.Log.WithFields(logrus.Fields{
			"recipient_id": n.RecipientID,
			"kind":         n.Kind,
		}).Warn("notify: очередь переполнена, уведомление отброшено")
	}
}

// Shutdown закрывает очередь и ждёт, пока воркеры дошлют остаток.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) deliver(parent context.Context, n entity.Notification) {
	defer goroutine.Recover("notify-deliver")

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	fields := logrus.Fields{"recipient_id": n.RecipientID, "kind": n.Kind}

	if n.RecipientEmail == "" && d.users != nil {
		if user, err := d.users.FindByID(ctx, n.RecipientID); err == nil {
			n.RecipientEmail = user.Email
		} else {
			logger.Log.WithFields(fields).WithError(err).Warn("notify: не удалось найти получателя")
		}
	}

	msg, err := Render(n)
	if err != nil {
		metrics.NotificationResult("failed")
		logger.Log.WithFields(fields).WithError(err).Warn("notify: не удалось подготовить уведомление")
		return
	}

	for _, s := range d.senders {
		if err := s.Send(ctx, n, msg); err != nil {
			metrics.NotificationResult("failed")
			logger.Log.WithFields(fields).WithField("channel", s.Name()).WithError(err).Warn("notify: доставка не удалась")
			continue
		}
		metrics.NotificationResult("sent")
	}
}
