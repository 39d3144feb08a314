// Package live держит локальное состояние открытого события: ленту
// сообщений, агрегат присутствия и жизненный цикл подписок вокруг них.
package live

import (
	"sync"

	"github.com/wmoralesdev/ues-live-go/domain"
)

// Feed — упорядоченная лента сообщений одного события. Транспорт
// доставляет at-least-once, поэтому вставка идемпотентна по id:
// порядок ленты = порядок первых доставок, без пересортировки.
type Feed struct {
	mu      sync.RWMutex
	eventID string
	seen    map[string]struct{}
	order   []domain.ChatMessage
}

// NewFeed заполняет ленту исторической выборкой (уже отсортированной
// по времени создания).
func NewFeed(eventID string, history []domain.ChatMessage) *Feed {
	f := &Feed{
		eventID: eventID,
		seen:    make(map[string]struct{}, len(history)),
		order:   make([]domain.ChatMessage, 0, len(history)),
	}
	for _, m := range history {
		f.apply(m)
	}

	return f
}

// Apply добавляет сообщение в хвост, если id ещё не встречался.
// Сообщения чужих событий игнорируются. Возвращает true при добавлении.
func (f *Feed) Apply(msg domain.ChatMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.apply(msg)
}

func (f *Feed) apply(msg domain.ChatMessage) bool {
	if msg.EventID != f.eventID {
		return false
	}
	if _, dup := f.seen[msg.ID]; dup {
		return false
	}
	f.seen[msg.ID] = struct{}{}
	f.order = append(f.order, msg)

	return true
}

func (f *Feed) EventID() string { return f.eventID }

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.order)
}

// Messages возвращает копию текущей ленты.
func (f *Feed) Messages() []domain.ChatMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.ChatMessage, len(f.order))
	copy(out, f.order)

	return out
}
