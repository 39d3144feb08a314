package live

import (
	"sync"

	"github.com/wmoralesdev/ues-live-go/domain"
)

// Presence агрегирует состояние присутствия канала: ключ — идентификатор
// пользователя. Счётчик согласован в конечном счёте: неаккуратно
// отключившийся участник висит до liveness-таймаута платформы.
type Presence struct {
	mu    sync.RWMutex
	state map[string]domain.PresenceEntry
}

func NewPresence() *Presence {
	return &Presence{state: make(map[string]domain.PresenceEntry)}
}

// SetState замещает агрегат целиком (снапшот после подписки или rejoin).
func (p *Presence) SetState(st map[string]domain.PresenceEntry) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = make(map[string]domain.PresenceEntry, len(st))
	for k, v := range st {
		p.state[k] = v
	}

	return len(p.state)
}

func (p *Presence) ApplyJoin(e domain.PresenceEntry) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state[e.UserID] = e

	return len(p.state)
}

func (p *Presence) ApplyLeave(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.state, userID)

	return len(p.state)
}

// Count — число различных присутствующих пользователей.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.state)
}

func (p *Presence) Entries() map[string]domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]domain.PresenceEntry, len(p.state))
	for k, v := range p.state {
		out[k] = v
	}

	return out
}
