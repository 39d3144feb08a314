package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/realtime"
)

const updateBuffer = 16

var ErrClosed = errors.New("live: view closed")

type UpdateType string

const (
	MessagesChanged UpdateType = "messages_changed"
	PresenceChanged UpdateType = "presence_changed"
	Stalled         UpdateType = "stalled"
)

// Update — событие для потребителя представления. При MessagesChanged
// заполнен снапшот ленты, при PresenceChanged — счётчик, при Stalled —
// ошибка подписки (live-обновления прекратились, лента статична).
type Update struct {
	Type     UpdateType
	EventID  string
	Messages []domain.ChatMessage
	Count    int
	Err      error
}

// MessageStore — срез репозитория сообщений, нужный представлению.
type MessageStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]domain.ChatMessage, error)
	Insert(ctx context.Context, eventID, userID string, in domain.MessageInput) (*domain.ChatMessage, error)
}

// Channel — одна realtime-подписка.
type Channel interface {
	Events() <-chan realtime.Event
	Track(entry domain.PresenceEntry) error
	Unsubscribe()
}

// Realtime выдаёт подписки по topic.
type Realtime interface {
	Subscribe(ctx context.Context, topic string) (Channel, error)
}

// SessionFunc сообщает текущего принципала; nil — аноним.
type SessionFunc func() *domain.Session

// View — открытый экран события: не больше одной подписки на сообщения
// и одной на присутствие, обязательный teardown через Close.
type View struct {
	store   MessageStore
	rt      Realtime
	session SessionFunc
	now     func() time.Time

	lifemu sync.Mutex // сериализует Open/Switch/Close

	mu       sync.Mutex
	closed   bool
	eventID  string
	feed     *Feed
	presence *Presence
	msgSub   Channel
	prsSub   Channel
	stop     context.CancelFunc
	updates  chan Update
}

func NewView(store MessageStore, rt Realtime, session SessionFunc) *View {
	if session == nil {
		session = func() *domain.Session { return nil }
	}

	return &View{
		store:   store,
		rt:      rt,
		session: session,
		now:     time.Now,
		updates: make(chan Update, updateBuffer),
	}
}

func (v *View) Updates() <-chan Update { return v.updates }

func (v *View) EventID() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.eventID
}

func (v *View) Messages() []domain.ChatMessage {
	v.mu.Lock()
	feed := v.feed
	v.mu.Unlock()
	if feed == nil {
		return nil
	}

	return feed.Messages()
}

func (v *View) PresenceCount() int {
	v.mu.Lock()
	prs := v.presence
	v.mu.Unlock()
	if prs == nil {
		return 0
	}

	return prs.Count()
}

// Open загружает историю и поднимает подписки. Ошибка загрузки
// возвращается как есть, подписки при этом не открываются. Отказ самой
// подписки не фатален: лента остаётся статичной, в Updates уходит Stalled.
func (v *View) Open(ctx context.Context, eventID string) error {
	v.lifemu.Lock()
	defer v.lifemu.Unlock()

	v.mu.Lock()
	closed, cur := v.closed, v.eventID
	v.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if cur != "" {
		return fmt.Errorf("view already open for %s", cur)
	}

	return v.open(ctx, eventID)
}

// Switch закрывает каналы прежнего события и открывает новое.
// Состояние прежнего события отбрасывается целиком.
func (v *View) Switch(ctx context.Context, eventID string) error {
	v.lifemu.Lock()
	defer v.lifemu.Unlock()

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return ErrClosed
	}

	v.teardown()

	return v.open(ctx, eventID)
}

// Close снимает подписки и закрывает Updates. Повторные вызовы — no-op.
func (v *View) Close() {
	v.lifemu.Lock()
	defer v.lifemu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.teardown()

	v.mu.Lock()
	close(v.updates)
	v.mu.Unlock()
}

// Send проверяет ввод и пишет сообщение через репозиторий. Лента не
// трогается: своё сообщение вернётся по подписке, как и чужие.
func (v *View) Send(ctx context.Context, content string) (*domain.ChatMessage, error) {
	s := v.session()
	if s == nil {
		return nil, domain.ErrNotSignedIn
	}
	// просроченную сессию не пускаем в сеть; нулевой expiry решает платформа
	if !s.ExpiresAt.IsZero() && s.IsExpired(v.now()) {
		return nil, domain.ErrSessionExpired
	}

	v.mu.Lock()
	eventID, closed := v.eventID, v.closed
	v.mu.Unlock()
	if closed || eventID == "" {
		return nil, ErrClosed
	}

	return v.store.Insert(ctx, eventID, s.User.ID, domain.MessageInput{Content: content})
}

func (v *View) open(ctx context.Context, eventID string) error {
	history, err := v.store.ListByEvent(ctx, eventID)
	if err != nil {
		return err
	}

	feed := NewFeed(eventID, history)
	prs := NewPresence()
	pumpCtx, stop := context.WithCancel(context.Background())

	v.mu.Lock()
	v.eventID = eventID
	v.feed = feed
	v.presence = prs
	v.stop = stop
	v.mu.Unlock()

	var msgCh, prsCh <-chan realtime.Event
	msgSub, err := v.rt.Subscribe(ctx, realtime.MessagesTopic(eventID))
	if err != nil {
		v.emit(Update{Type: Stalled, EventID: eventID, Err: err})
	} else {
		msgCh = msgSub.Events()
		v.mu.Lock()
		v.msgSub = msgSub
		v.mu.Unlock()
	}

	// присутствие поднимается только при известном принципале
	if s := v.session(); s != nil {
		prsSub, err := v.rt.Subscribe(ctx, realtime.PresenceTopic(eventID))
		if err != nil {
			v.emit(Update{Type: Stalled, EventID: eventID, Err: err})
		} else {
			prsCh = prsSub.Events()
			v.mu.Lock()
			v.prsSub = prsSub
			v.mu.Unlock()
			if terr := prsSub.Track(domain.PresenceEntry{UserID: s.User.ID, LastSeen: v.now().UTC()}); terr != nil {
				slog.Warn("live: track failed", slog.String("event_id", eventID), slog.Any("err", terr))
			}
		}
	}

	v.emit(Update{Type: MessagesChanged, EventID: eventID, Messages: feed.Messages()})

	go v.pump(pumpCtx, eventID, feed, prs, msgCh, prsCh)

	return nil
}

func (v *View) teardown() {
	v.mu.Lock()
	stop, msgSub, prsSub := v.stop, v.msgSub, v.prsSub
	v.stop, v.msgSub, v.prsSub = nil, nil, nil
	v.eventID = ""
	v.feed = nil
	v.presence = nil
	v.mu.Unlock()

	if stop != nil {
		stop()
	}
	if msgSub != nil {
		msgSub.Unsubscribe()
	}
	if prsSub != nil {
		prsSub.Unsubscribe()
	}
}

func (v *View) pump(ctx context.Context, eventID string, feed *Feed, prs *Presence, msgCh, prsCh <-chan realtime.Event) {
	sawErr := false
	for msgCh != nil || prsCh != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-msgCh:
			if !ok {
				msgCh = nil
				if ctx.Err() == nil && !sawErr {
					v.emit(Update{Type: Stalled, EventID: eventID})
				}
				continue
			}
			if ev.Type == realtime.EventError {
				sawErr = true
			}
			v.onMessageEvent(eventID, feed, ev)
		case ev, ok := <-prsCh:
			if !ok {
				// счётчик замирает, лента продолжает жить
				prsCh = nil
				continue
			}
			v.onPresenceEvent(eventID, prs, ev)
		}
	}
}

func (v *View) onMessageEvent(eventID string, feed *Feed, ev realtime.Event) {
	switch ev.Type {
	case realtime.EventMessage:
		// события чужого события никогда не меняют текущую ленту
		if ev.Message == nil || ev.Message.EventID != eventID {
			return
		}
		if feed.Apply(*ev.Message) {
			v.emit(Update{Type: MessagesChanged, EventID: eventID, Messages: feed.Messages()})
		}
	case realtime.EventError:
		v.emit(Update{Type: Stalled, EventID: eventID, Err: ev.Err})
	}
}

func (v *View) onPresenceEvent(eventID string, prs *Presence, ev realtime.Event) {
	switch ev.Type {
	case realtime.EventPresenceState:
		prs.SetState(ev.Presence)
	case realtime.EventPresenceDiff:
		if ev.Diff == nil {
			return
		}
		for _, e := range ev.Diff.Joins {
			prs.ApplyJoin(e)
		}
		for id := range ev.Diff.Leaves {
			prs.ApplyLeave(id)
		}
	default:
		return
	}

	v.emit(Update{Type: PresenceChanged, EventID: eventID, Count: prs.Count()})
}

// emit не блокирует: медленный потребитель теряет промежуточный снапшот,
// следующий апдейт его догонит.
func (v *View) emit(u Update) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || v.eventID != u.EventID {
		return
	}
	select {
	case v.updates <- u:
	default:
		slog.Debug("live: update dropped",
			slog.String("event_id", u.EventID),
			slog.String("type", string(u.Type)))
	}
}
