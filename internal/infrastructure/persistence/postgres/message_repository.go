package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/exwork-backend/internal/domain/entity"
	"github.com/jmoiron/sqlx"
)

type MessageRepository struct {
	q sqlx.ExtContext
}

type messageRow struct {
	ID         uuid.UUID `db:"id"`
	ProjectID  uuid.UUID `db:"project_id"`
	SenderID   uuid.UUID `db:"sender_id"`
	ReceiverID uuid.UUID `db:"receiver_id"`
	Content    string    `db:"content"`
	Read       bool      `db:"read"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r messageRow) toEntity() *entity.Message {
	return &entity.Message{
		ID:         r.ID,
		ProjectID:  r.ProjectID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt,
	}
}

func (r *MessageRepository) Create(ctx context.Context, m *entity.Message) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO messages (id, project_id, sender_id, receiver_id, content, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ProjectID, m.SenderID, m.ReceiverID, m.Content, m.Read, m.CreatedAt,
	)
	return mapError(err, "не удалось сохранить сообщение")
}

func (r *MessageRepository) FindByProject(ctx context.Context, projectID, userID uuid.UUID) ([]*entity.Message, error) {
	var rows []messageRow
	err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT id, project_id, sender_id, receiver_id, content, read, created_at
		FROM messages
		WHERE project_id = $1 AND (sender_id = $2 OR receiver_id = $2)
		ORDER BY created_at`,
		projectID, userID,
	)
	if err != nil {
		return nil, mapError(err, "не удалось получить сообщения")
	}
	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toEntity())
	}
	return messages, nil
}

// MarkReadForReceiver трогает только непрочитанные строки, поэтому флаг меняется ровно один раз.
func (r *MessageRepository) MarkReadForReceiver(ctx context.Context, projectID, receiverID uuid.UUID) (int, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE messages SET read = TRUE WHERE project_id = $1 AND receiver_id = $2 AND NOT read`,
		projectID, receiverID,
	)
	if err != nil {
		return 0, mapError(err, "не удалось отметить сообщения прочитанными")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err, "не удалось отметить сообщения прочитанными")
	}
	return int(n), nil
}
