package domain

import "time"

type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Date        time.Time `db:"date" json:"date"`
	Location    string    `db:"location" json:"location"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Данные для создания/обновления события; id и timestamps назначает платформа
type EventInput struct {
	Title       string    `json:"title" validate:"required,min=3,max=120"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required,max=160"`
}

func (in *EventInput) Validate() error {
	in.Title = trimString(in.Title)
	in.Location = trimString(in.Location)
	in.Description = trimPtr(in.Description)

	return validateStruct(in)
}
