package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

const (
	maxFrameSize = 1 << 20 // 1 MiB
	joinTimeout  = 10 * time.Second
)

type ReconnectPolicy struct {
	Enabled    bool
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

type Options struct {
	URL          string
	AnonKey      string
	Token        func() string // текущий access token, пустая строка для анонима
	Heartbeat    time.Duration
	WriteTimeout time.Duration
	Reconnect    ReconnectPolicy
}

// Client держит одно ws-соединение с платформой и мультиплексирует
// подписки по topic. Запись всегда сериализована через sendMu.
type Client struct {
	opt Options

	mu    sync.Mutex // conn, ready
	conn  *websocket.Conn
	ready chan struct{} // закрывается при установке соединения

	sendMu chan struct{} // последовательные записи в сокет

	submu sync.RWMutex
	subs  map[string]*Subscription

	ackmu sync.Mutex
	acks  map[string]chan error // ref -> ожидание join_ok
}

func NewClient(opt Options) (*Client, error) {
	u, err := url.Parse(opt.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: realtime url: %v", errs.ErrInvalidInput, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: realtime url scheme %q", errs.ErrInvalidInput, u.Scheme)
	}
	if opt.Heartbeat <= 0 {
		opt.Heartbeat = 25 * time.Second
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = 10 * time.Second
	}

	c := &Client{
		opt:    opt,
		ready:  make(chan struct{}),
		sendMu: make(chan struct{}, 1),
		subs:   make(map[string]*Subscription),
		acks:   make(map[string]chan error),
	}

	return c, nil
}

// WaitReady блокирует до первого успешного подключения либо отмены ctx.
func (c *Client) WaitReady(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.conn != nil {
			c.mu.Unlock()
			return nil
		}
		ch := c.ready
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Run ведёт соединение до отмены ctx. Без включённого reconnect первая
// потеря соединения завершает все подписки и возвращает ошибку.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		started := time.Now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.failAll(nil)
			return nil
		}

		if !c.opt.Reconnect.Enabled {
			c.failAll(err)
			return fmt.Errorf("%w: %v", errs.ErrSubscription, err)
		}

		// долгая сессия обнуляет счётчик попыток
		if time.Since(started) > time.Minute {
			attempt = 0
		}
		attempt++
		delay := reconnectDelay(c.opt.Reconnect, attempt)
		slog.Warn("realtime: connection lost",
			slog.Any("err", err),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			c.failAll(nil)
			return nil
		case <-time.After(delay):
		}
	}
}

// session — одна жизнь соединения: dial, rejoin, пампы до первой ошибки.
func (c *Client) session(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		conn.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readPump(gctx, conn) })
	g.Go(func() error { return c.heartbeatPump(gctx) })
	g.Go(func() error {
		// ReadMessage снимается только закрытием сокета
		<-gctx.Done()
		conn.Close()
		return nil
	})

	c.rejoin()

	return g.Wait()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, _ := url.Parse(c.opt.URL)
	q := u.Query()
	if c.opt.AnonKey != "" {
		q.Set("apikey", c.opt.AnonKey)
	}
	if c.opt.Token != nil {
		if tok := c.opt.Token(); tok != "" {
			q.Set("token", tok)
		}
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w", errs.FromStatus(resp.StatusCode), err)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	if conn != nil {
		close(c.ready)
	} else {
		c.ready = make(chan struct{})
	}
	c.mu.Unlock()
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn
}

// send пишет кадр под sendMu, как и любая другая запись в сокет.
func (c *Client) send(fr frame) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()

	conn := c.currentConn()
	if conn == nil {
		return errNotConnected
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.opt.WriteTimeout))

	return conn.WriteJSON(fr)
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(2 * c.opt.Heartbeat))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		// любой входящий кадр продлевает liveness
		_ = conn.SetReadDeadline(time.Now().Add(2 * c.opt.Heartbeat))

		var fr frame
		if err := json.Unmarshal(data, &fr); err != nil {
			slog.Warn("realtime: malformed frame", slog.Any("err", err))
			continue
		}
		c.dispatch(ctx, fr)
	}
}

func (c *Client) heartbeatPump(ctx context.Context) error {
	ticker := time.NewTicker(c.opt.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fr, _ := newFrame(topicSystem, eventHeartbeat, newRef(), nil)
			if err := c.send(fr); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

func (c *Client) dispatch(ctx context.Context, fr frame) {
	switch fr.Event {
	case eventJoinOK:
		c.resolveAck(fr.Ref, nil)
	case eventHeartbeatOK:
		// дедлайн уже продлён в readPump
	case eventError:
		c.dispatchError(fr)
	case eventInsert:
		ev, err := decodeInsert(fr)
		if err != nil {
			slog.Warn("realtime: bad insert payload", slog.String("topic", fr.Topic), slog.Any("err", err))
			return
		}
		c.route(ctx, fr.Topic, ev)
	case eventPresenceState:
		var st PresenceState
		if err := json.Unmarshal(fr.Payload, &st); err != nil {
			slog.Warn("realtime: bad presence_state payload", slog.String("topic", fr.Topic), slog.Any("err", err))
			return
		}
		c.route(ctx, fr.Topic, Event{Type: EventPresenceState, Topic: fr.Topic, Presence: st})
	case eventPresenceDiff:
		var diff PresenceDiff
		if err := json.Unmarshal(fr.Payload, &diff); err != nil {
			slog.Warn("realtime: bad presence_diff payload", slog.String("topic", fr.Topic), slog.Any("err", err))
			return
		}
		c.route(ctx, fr.Topic, Event{Type: EventPresenceDiff, Topic: fr.Topic, Diff: &diff})
	default:
		// неизвестные события молча пропускаем
	}
}

func (c *Client) dispatchError(fr frame) {
	var p errorPayload
	_ = json.Unmarshal(fr.Payload, &p)
	err := fmt.Errorf("%w: %s", errs.ErrSubscription, p.Message)

	if fr.Ref != "" {
		c.resolveAck(fr.Ref, err)
		return
	}
	// ошибка уровня канала завершает подписку
	if sub := c.takeSub(fr.Topic); sub != nil {
		sub.terminate(err)
	}
}

func (c *Client) registerAck(ref string) chan error {
	ch := make(chan error, 1)
	c.ackmu.Lock()
	c.acks[ref] = ch
	c.ackmu.Unlock()

	return ch
}

func (c *Client) resolveAck(ref string, err error) {
	c.ackmu.Lock()
	ch, ok := c.acks[ref]
	delete(c.acks, ref)
	c.ackmu.Unlock()
	if ok {
		ch <- err
	}
}

func (c *Client) dropAck(ref string) {
	c.ackmu.Lock()
	delete(c.acks, ref)
	c.ackmu.Unlock()
}

// rejoin повторяет join для живых подписок после переподключения.
func (c *Client) rejoin() {
	c.submu.RLock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	c.submu.RUnlock()

	for _, t := range topics {
		fr, _ := newFrame(t, eventJoin, newRef(), nil)
		if err := c.send(fr); err != nil {
			slog.Warn("realtime: rejoin failed", slog.String("topic", t), slog.Any("err", err))
			return
		}
	}
}

// failAll завершает все подписки; err == nil — штатная остановка.
func (c *Client) failAll(err error) {
	c.submu.Lock()
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.submu.Unlock()

	for _, sub := range subs {
		if err != nil {
			sub.terminate(fmt.Errorf("%w: %v", errs.ErrSubscription, err))
		} else {
			sub.terminate(nil)
		}
	}
}

func reconnectDelay(rc ReconnectPolicy, attempt int) time.Duration {
	d := rc.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * rc.Multiplier)
		if d >= rc.MaxDelay {
			return rc.MaxDelay
		}
	}
	if d > rc.MaxDelay {
		return rc.MaxDelay
	}

	return d
}
