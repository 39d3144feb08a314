package domain

import "time"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Сессия, выданная auth-сервисом платформы; токены клиент не валидирует
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
