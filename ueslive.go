// Package ueslive — Go-клиент событийной платформы UES Live:
// типизированные репозитории поверх таблиц платформы, сессии внешней
// аутентификации и realtime-лента сообщений с присутствием.
package ueslive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wmoralesdev/ues-live-go/auth"
	"github.com/wmoralesdev/ues-live-go/config"
	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/live"
	"github.com/wmoralesdev/ues-live-go/pkg/logger"
	"github.com/wmoralesdev/ues-live-go/postgres"
	"github.com/wmoralesdev/ues-live-go/realtime"
)

const readyTimeout = 5 * time.Second

// Client — единственный разделяемый хэндл: собирается явно из конфига
// и передаётся дальше, глобального состояния у пакета нет.
type Client struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	Events   *postgres.EventRepository
	Messages *postgres.MessageRepository
	Auth     auth.Client
	Sessions *auth.SessionStore
	Realtime *realtime.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New собирает клиент и запускает фоновые контуры: автообновление
// сессии и realtime-соединение.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ueslive: config: %w", err)
	}
	logger.Init(cfg.Logging.ToLoggerConfig())

	pool, err := postgres.NewPool(ctx, cfg.Postgres.ToPGConfig())
	if err != nil {
		return nil, fmt.Errorf("ueslive: postgres: %w", err)
	}

	api, err := auth.New(auth.Options{
		BaseURL: cfg.Auth.BaseURL,
		AnonKey: cfg.Auth.AnonKey,
		Timeout: cfg.Auth.Timeout,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ueslive: auth: %w", err)
	}
	sessions := auth.NewSessionStore(api)

	rt, err := realtime.NewClient(cfg.Realtime.ToRealtimeOptions(cfg.Auth.AnonKey, sessions.AccessToken))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ueslive: realtime: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:      cfg,
		pool:     pool,
		Events:   postgres.NewEventRepository(pool),
		Messages: postgres.NewMessageRepository(pool),
		Auth:     api,
		Sessions: sessions,
		Realtime: rt,
		cancel:   cancel,
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := sessions.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("ueslive: session loop stopped", slog.Any("err", err))
		}
	}()
	go func() {
		defer c.wg.Done()
		if err := rt.Run(runCtx); err != nil {
			slog.Error("ueslive: realtime stopped", slog.Any("err", err))
		}
	}()

	return c, nil
}

// OpenView открывает live-экран события: история, подписка на вставки
// и, для вошедшего пользователя, присутствие. Закрыть View обязан
// вызывающий, до Client.Close.
func (c *Client) OpenView(ctx context.Context, eventID string) (*live.View, error) {
	wctx, wcancel := context.WithTimeout(ctx, readyTimeout)
	defer wcancel()
	if err := c.Realtime.WaitReady(wctx); err != nil {
		// подписки в View откажут, экран останется статичным
		slog.Warn("ueslive: realtime is not ready", slog.Any("err", err))
	}

	v := live.NewView(c.Messages, channels{c.Realtime}, c.Sessions.Current)
	if err := v.Open(ctx, eventID); err != nil {
		return nil, err
	}

	return v, nil
}

// SignInWithMagicLink шлёт ссылку на почту и ждёт код на loopback-callback.
func (c *Client) SignInWithMagicLink(ctx context.Context, email string) (*domain.Session, error) {
	if err := c.Auth.SignInWithEmailLink(ctx, email, c.cfg.Auth.RedirectURL); err != nil {
		return nil, err
	}

	return c.AwaitCallback(ctx)
}

// SignInURL строит authorize-URL провайдера; код ловит AwaitCallback.
func (c *Client) SignInURL(provider string) (string, error) {
	return c.Auth.SignInWithOAuth(provider, c.cfg.Auth.RedirectURL)
}

// AwaitCallback ждёт redirect платформы на loopback и фиксирует сессию.
func (c *Client) AwaitCallback(ctx context.Context) (*domain.Session, error) {
	l, err := auth.NewCallbackListener(c.Auth, c.Sessions, c.cfg.Auth.RedirectURL)
	if err != nil {
		return nil, err
	}

	return l.Run(ctx)
}

// Migrate прогоняет локальные миграции схемы (dev-стенд платформы).
func (c *Client) Migrate(ctx context.Context, dir string) error {
	return postgres.MigrateUp(ctx, c.pool, dir)
}

// Close гасит фоновые контуры и пул соединений. Повторные вызовы — no-op.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.pool.Close()
	})
}

// channels адаптирует realtime.Client к live.Realtime.
type channels struct{ rt *realtime.Client }

func (a channels) Subscribe(ctx context.Context, topic string) (live.Channel, error) {
	sub, err := a.rt.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	return sub, nil
}
