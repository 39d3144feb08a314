package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

const eventBuffer = 64

var errNotConnected = errors.New("not connected")

func newRef() string { return uuid.NewString() }

// Subscription — поток событий одного topic. Events закрывается после
// Unsubscribe или при потере соединения без reconnect.
type Subscription struct {
	topic  string
	client *Client
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) Events() <-chan Event { return s.events }

// Track объявляет присутствие на канале подписки.
func (s *Subscription) Track(entry domain.PresenceEntry) error {
	fr, err := newFrame(s.topic, eventTrack, newRef(), entry)
	if err != nil {
		return err
	}
	if err := s.client.send(fr); err != nil {
		return fmt.Errorf("%w: track %s: %v", errs.ErrSubscription, s.topic, err)
	}

	return nil
}

// Unsubscribe снимает подписку и закрывает Events. Повторные вызовы — no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.client.removeSub(s.topic)
		close(s.events)

		// leave до платформы может не дойти, сервер подчистит по таймауту
		fr, _ := newFrame(s.topic, eventLeave, newRef(), nil)
		_ = s.client.send(fr)
	})
}

// terminate закрывает подписку со стороны клиента. Вызывается только
// после удаления из реестра, когда доставка в events уже невозможна.
func (s *Subscription) terminate(err error) {
	s.once.Do(func() {
		close(s.done)
		if err != nil {
			select {
			case s.events <- Event{Type: EventError, Topic: s.topic, Err: err}:
			default:
			}
		}
		close(s.events)
	})
}

// Subscribe вступает в topic и ждёт подтверждения платформы.
// На один topic допускается одна активная подписка.
func (c *Client) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	sub := &Subscription{
		topic:  topic,
		client: c,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}

	c.submu.Lock()
	if _, exists := c.subs[topic]; exists {
		c.submu.Unlock()
		return nil, fmt.Errorf("%w: already subscribed to %s", errs.ErrSubscription, topic)
	}
	c.subs[topic] = sub
	c.submu.Unlock()

	ref := newRef()
	ack := c.registerAck(ref)
	fr, _ := newFrame(topic, eventJoin, ref, nil)
	if err := c.send(fr); err != nil {
		c.dropAck(ref)
		c.removeSub(topic)
		return nil, fmt.Errorf("%w: join %s: %v", errs.ErrSubscription, topic, err)
	}

	select {
	case err := <-ack:
		if err != nil {
			c.removeSub(topic)
			return nil, err
		}
	case <-time.After(joinTimeout):
		c.dropAck(ref)
		c.removeSub(topic)
		return nil, fmt.Errorf("%w: join %s: no ack", errs.ErrSubscription, topic)
	case <-ctx.Done():
		c.dropAck(ref)
		c.removeSub(topic)
		return nil, ctx.Err()
	}

	return sub, nil
}

// route доставляет событие подписке topic; держит RLock на время
// отправки, чтобы закрытие events не пересеклось с записью.
func (c *Client) route(ctx context.Context, topic string, ev Event) {
	c.submu.RLock()
	defer c.submu.RUnlock()

	sub, ok := c.subs[topic]
	if !ok {
		return
	}

	select {
	case sub.events <- ev:
	case <-sub.done:
	case <-ctx.Done():
	}
}

func (c *Client) removeSub(topic string) {
	c.submu.Lock()
	delete(c.subs, topic)
	c.submu.Unlock()
}

func (c *Client) takeSub(topic string) *Subscription {
	c.submu.Lock()
	sub := c.subs[topic]
	delete(c.subs, topic)
	c.submu.Unlock()

	return sub
}
