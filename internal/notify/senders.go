package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// Sender доставляет уведомление одним каналом.
type Sender interface {
	Name() string
	Send(ctx context.Context, n entity.Notification, msg Message) error
}

var errNoRecipientEmail = errors.New("notify: у получателя нет email")

// MailSender отправляет письма через HTTP API почтового сервиса (формат Plunk).
type MailSender struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewMailSender(apiURL, apiKey, from string, client *http.Client) *MailSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &MailSender{apiURL: apiURL, apiKey: apiKey, from: from, client: client}
}

func (s *MailSender) Name() string { return "mail" }

type mailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
}

func (s *MailSender) Send(ctx context.Context, n entity.Notification, msg Message) error {
	if n.RecipientEmail == "" {
		return errNoRecipientEmail
	}

	raw, err := json.Marshal(mailRequest{
		To:      n.RecipientEmail,
		Subject: msg.Subject,
		Body:    msg.Body,
		From:    s.from,
	})
	if err != nil {
		return fmt.Errorf("mail: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mail: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: status=%d body=%s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// Broadcaster — канал push-уведомлений в открытые websocket-подключения.
type Broadcaster interface {
	BroadcastToUser(ctx context.Context, userID uuid.UUID, event string, data any) error
}

// PushSender дублирует уведомление в websocket пользователя.
type PushSender struct {
	hub Broadcaster
}

func NewPushSender(hub Broadcaster) *PushSender {
	return &PushSender{hub: hub}
}

func (s *PushSender) Name() string { return "ws" }

func (s *PushSender) Send(ctx context.Context, n entity.Notification, msg Message) error {
	return s.hub.BroadcastToUser(ctx, n.RecipientID, string(n.Kind), map[string]any{
		"subject": msg.Subject,
		"body":    msg.Body,
		"params":  n.Params,
	})
}

// LogSender пишет уведомления в лог, когда почта не настроена.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(_ context.Context, n entity.Notification, msg Message) error {
	logger.Log.WithFields(logrus.Fields{
		"recipient_id": n.RecipientID,
		"kind":         n.Kind,
		"subject":      msg.Subject,
	}).Info(msg.Body)
	return nil
}
