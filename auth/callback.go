package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wmoralesdev/ues-live-go/domain"
)

const callbackPage = `<!doctype html>
<html>
  <head><meta charset="utf-8"><title>UES Live</title></head>
  <body>Signed in. You can close this tab and return to the app.</body>
</html>`

// CallbackListener — loopback-сервер под redirect magic link / OAuth.
// Браузер приходит на redirectUrl с ?code=, код меняется на сессию
type CallbackListener struct {
	api      Client
	store    *SessionStore
	redirect *url.URL
}

func NewCallbackListener(api Client, store *SessionStore, redirectURL string) (*CallbackListener, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("callback: parse redirect url: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("callback: redirect url must be a loopback http url, got %q", redirectURL)
	}

	return &CallbackListener{api: api, store: store, redirect: u}, nil
}

// Run блокирует до первого кода из redirect или завершения ctx.
// Полученная сессия кладётся в store
func (l *CallbackListener) Run(ctx context.Context) (*domain.Session, error) {
	codeCh := make(chan string, 1)

	path := l.redirect.Path
	if path == "" {
		path = "/"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		code := req.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		select {
		case codeCh <- code:
		default: // код уже получен
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackPage))
	})

	srv := &http.Server{Addr: l.redirect.Host, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		if err == nil {
			return nil, fmt.Errorf("callback: server closed")
		}
		return nil, fmt.Errorf("callback: %w", err)
	case code := <-codeCh:
		sess, err := l.api.VerifyCode(ctx, code)
		if err != nil {
			return nil, err
		}
		l.store.Set(sess)

		return sess, nil
	}
}
