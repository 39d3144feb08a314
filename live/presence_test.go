package live_test

import (
	"testing"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/live"
)

func entry(userID string) domain.PresenceEntry {
	return domain.PresenceEntry{UserID: userID, LastSeen: time.Now().UTC()}
}

func TestPresence_CountTransitions(t *testing.T) {
	p := live.NewPresence()

	if got := p.SetState(map[string]domain.PresenceEntry{"u1": entry("u1")}); got != 1 {
		t.Fatalf("count after own track = %d, want 1", got)
	}
	if got := p.ApplyJoin(entry("u2")); got != 2 {
		t.Fatalf("count after second join = %d, want 2", got)
	}
	if got := p.ApplyLeave("u2"); got != 1 {
		t.Fatalf("count after leave = %d, want 1", got)
	}
	if got := p.ApplyLeave("u1"); got != 0 {
		t.Fatalf("count after last leave = %d, want 0", got)
	}
}

func TestPresence_JoinIsKeyedByUser(t *testing.T) {
	p := live.NewPresence()

	p.ApplyJoin(entry("u1"))
	p.ApplyJoin(entry("u1")) // вторая вкладка того же пользователя

	if p.Count() != 1 {
		t.Fatalf("count = %d, want 1 distinct user", p.Count())
	}
}

func TestPresence_SetStateReplacesWholesale(t *testing.T) {
	p := live.NewPresence()
	p.ApplyJoin(entry("stale"))

	p.SetState(map[string]domain.PresenceEntry{
		"u1": entry("u1"),
		"u2": entry("u2"),
	})

	if p.Count() != 2 {
		t.Fatalf("count = %d, want 2", p.Count())
	}
	if _, ok := p.Entries()["stale"]; ok {
		t.Fatalf("stale entry survived SetState")
	}
}

func TestPresence_LeaveUnknownUserIsNoop(t *testing.T) {
	p := live.NewPresence()
	p.ApplyJoin(entry("u1"))

	if got := p.ApplyLeave("ghost"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}
