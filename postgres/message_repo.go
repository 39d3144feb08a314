package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

type MessageRepository struct {
	q querier
}

func NewMessageRepository(q querier) *MessageRepository {
	return &MessageRepository{q: q}
}

func NewMessageRepositoryFromTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{q: tx}
}

// Insert — пишет сообщение; событие должно существовать на момент вставки
func (r *MessageRepository) Insert(ctx context.Context, eventID, userID string, in domain.MessageInput) (*domain.ChatMessage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m := domain.ChatMessage{
		EventID: eventID,
		UserID:  userID,
		Content: in.Content,
	}
	err := r.q.QueryRow(ctx, queryInsertMessage, eventID, userID, in.Content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err)
	}

	return &m, nil
}

// ListByEvent — вся история по возрастанию created_at, для начальной загрузки.
// Удалённое или пустое событие даёт пустой срез
func (r *MessageRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.ChatMessage, error) {
	rows, err := r.q.Query(ctx, queryListMessagesByEvent, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}

	return out, nil
}

// History — курсорная пагинация для длинных историй, (created_at, id) DESC
func (r *MessageRepository) History(ctx context.Context, eventID, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.q.Query(ctx, queryListMessagesPage, eventID, createdAt, id, limit)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, "", fmt.Errorf("%w: %v", errs.ErrFetch, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, queryDeleteMessage, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}

	return nil
}
