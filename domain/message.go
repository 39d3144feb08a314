package domain

import "time"

// Сообщение чата события; после вставки не меняется
type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type MessageInput struct {
	Content string `json:"content" validate:"required,max=4000"`
}

func (in *MessageInput) Validate() error {
	in.Content = trimString(in.Content)

	return validateStruct(in)
}
