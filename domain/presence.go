package domain

import "time"

// Эфемерное присутствие в канале события; живет только пока канал открыт
type PresenceEntry struct {
	UserID   string    `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}
