package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
)

type ChangeType string

const (
	SignedIn       ChangeType = "signed_in"
	TokenRefreshed ChangeType = "token_refreshed"
	SignedOut      ChangeType = "signed_out"
)

type Change struct {
	Type    ChangeType
	Session *domain.Session // nil после signed_out
}

// SessionStore держит текущую сессию и раздаёт изменения подписчикам.
// Refresh планируется по exp токена и выполняется в Run
type SessionStore struct {
	api Client
	now func() time.Time

	mu     sync.RWMutex
	cur    *domain.Session
	subs   map[int]chan Change
	nextID int

	wake chan struct{} // пересчитать таймер refresh

	refreshLead time.Duration
	retryFloor  time.Duration
}

func NewSessionStore(api Client) *SessionStore {
	return &SessionStore{
		api:         api,
		now:         time.Now,
		subs:        make(map[int]chan Change),
		wake:        make(chan struct{}, 1),
		refreshLead: 30 * time.Second,
		retryFloor:  5 * time.Second,
	}
}

// Current — копия текущей сессии; nil, если не вошли
func (s *SessionStore) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cur == nil {
		return nil
	}
	cp := *s.cur

	return &cp
}

func (s *SessionStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cur == nil {
		return ""
	}

	return s.cur.AccessToken
}

// Set принимает сессию, полученную от платформы (вход или refresh)
func (s *SessionStore) Set(sess *domain.Session) {
	if sess == nil {
		return
	}

	s.mu.Lock()
	prev := s.cur
	cp := *sess
	s.cur = &cp
	typ := SignedIn
	if prev != nil && prev.User.ID == cp.User.ID {
		typ = TokenRefreshed
	}
	s.mu.Unlock()

	s.emit(Change{Type: typ, Session: s.Current()})
	s.kick()
}

// SignOut чистит локальную сессию в любом случае; ошибка платформы
// возвращается наверх
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	cur := s.cur
	s.cur = nil
	s.mu.Unlock()

	if cur == nil {
		return domain.ErrNotSignedIn
	}

	err := s.api.SignOut(ctx, cur.AccessToken)
	s.emit(Change{Type: SignedOut})
	s.kick()

	return err
}

// Subscribe возвращает канал изменений и функцию отписки.
// Медленный подписчик теряет события, канал не блокирует остальных
func (s *SessionStore) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Change, 8)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Run крутит авто-refresh до завершения ctx
func (s *SessionStore) Run(ctx context.Context) error {
	for {
		var timer *time.Timer
		var timerC <-chan time.Time
		if d, ok := s.untilRefresh(); ok {
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			s.refresh(ctx)
		}
	}
}

func (s *SessionStore) untilRefresh() (time.Duration, bool) {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()

	if cur == nil {
		return 0, false
	}

	exp := cur.ExpiresAt
	if exp.IsZero() {
		e, err := tokenExpiry(cur.AccessToken)
		if err != nil {
			return 0, false // без exp планировать нечего
		}
		exp = e
	}

	d := exp.Sub(s.now()) - s.refreshLead
	if d < s.retryFloor {
		d = s.retryFloor
	}

	return d, true
}

func (s *SessionStore) refresh(ctx context.Context) {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()
	if cur == nil {
		return
	}

	sess, err := s.api.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		slog.Error("auth.refresh:", slog.Any("err", err))
		if cur.IsExpired(s.now()) {
			// сессию уже не спасти
			s.mu.Lock()
			s.cur = nil
			s.mu.Unlock()
			s.emit(Change{Type: SignedOut})
		}
		return
	}

	s.Set(sess)
}

func (s *SessionStore) emit(ch Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		select {
		case sub <- ch:
		default:
			slog.Warn("auth.store: slow subscriber, change dropped", "type", string(ch.Type))
		}
	}
}

func (s *SessionStore) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
