package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

type EventRepository struct {
	q querier
}

func NewEventRepository(q querier) *EventRepository {
	return &EventRepository{q: q}
}

func NewEventRepositoryFromTx(tx pgx.Tx) *EventRepository {
	return &EventRepository{q: tx}
}

// Create — вставляет событие; id и timestamps назначает база
func (r *EventRepository) Create(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ev := domain.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
	}
	err := r.q.QueryRow(ctx, queryCreateEvent, in.Title, in.Description, in.Date, in.Location).
		Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err)
	}

	return &ev, nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*domain.Event, error) {
	var ev domain.Event
	err := r.q.QueryRow(ctx, queryGetEvent, id).Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.Date,
		&ev.Location,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, mapReadError(err, domain.ErrEventNotFound)
	}

	return &ev, nil
}

// List возвращает все события по возрастанию даты.
// Пустая таблица — пустой срез, не ошибка
func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.q.Query(ctx, queryListEvents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Location, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}

	return out, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, in domain.EventInput) (*domain.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var ev domain.Event
	err := r.q.QueryRow(ctx, queryUpdateEvent, id, in.Title, in.Description, in.Date, in.Location).Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.Date,
		&ev.Location,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, mapWriteError(err)
	}

	return &ev, nil
}

// Delete — каскадом уходят и сообщения события (FK ON DELETE CASCADE)
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, queryDeleteEvent, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}
