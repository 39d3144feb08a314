package realtime

import "github.com/wmoralesdev/ues-live-go/domain"

type EventType string

const (
	EventMessage       EventType = "message"
	EventPresenceState EventType = "presence_state"
	EventPresenceDiff  EventType = "presence_diff"
	EventError         EventType = "error"
)

// Event — элемент потока подписки. Заполнено поле, соответствующее Type.
type Event struct {
	Type     EventType
	Topic    string
	Message  *domain.ChatMessage
	Presence PresenceState
	Diff     *PresenceDiff
	Err      error
}
