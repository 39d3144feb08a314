package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

// Client — клиент auth-API платформы. Пароли и проверка подписи токенов
// остаются на стороне платформы: входы только по magic link и OAuth
type Client interface {
	// Шлет на email ссылку для входа; вход завершается кодом из redirect
	SignInWithEmailLink(ctx context.Context, email, redirectTo string) error
	// Строит authorize-URL провайдера; открывается в браузере
	SignInWithOAuth(provider, redirectTo string) (string, error)
	// Обменивает код из redirect на сессию
	VerifyCode(ctx context.Context, code string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	User(ctx context.Context, accessToken string) (*domain.User, error)
}

type client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	now     func() time.Time
}

type Options struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
}

func New(opts Options) (Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("auth client: empty base url")
	}
	if opts.AnonKey == "" {
		return nil, fmt.Errorf("auth client: empty anon key")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("auth client: parse base url: %w", err)
	}

	return &client{
		base:    base,
		http:    &http.Client{Transport: newTransport(opts.AnonKey)},
		timeout: opts.Timeout,
		now:     time.Now,
	}, nil
}

func (c *client) SignInWithEmailLink(ctx context.Context, email, redirectTo string) error {
	return c.doJSON(ctx, http.MethodPost, "otp", "", otpRequest{Email: email, RedirectTo: redirectTo}, nil)
}

func (c *client) SignInWithOAuth(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("%w: empty oauth provider", errs.ErrInvalidInput)
	}

	u := c.base.JoinPath("authorize")
	q := u.Query()
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirectTo", redirectTo)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *client) VerifyCode(ctx context.Context, code string) (*domain.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", errs.ErrInvalidInput)
	}

	var res sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "verify", "", verifyRequest{Code: code}, &res); err != nil {
		return nil, err
	}

	return c.toSession(res)
}

func (c *client) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", errs.ErrInvalidInput)
	}

	var res sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "token", "", refreshRequest{RefreshToken: refreshToken}, &res); err != nil {
		return nil, err
	}

	return c.toSession(res)
}

func (c *client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return domain.ErrNotSignedIn
	}

	return c.doJSON(ctx, http.MethodPost, "logout", accessToken, nil, nil)
}

func (c *client) User(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.ErrNotSignedIn
	}

	var res userPayload
	if err := c.doJSON(ctx, http.MethodGet, "user", accessToken, nil, &res); err != nil {
		return nil, err
	}

	return &domain.User{ID: res.ID, Email: res.Email}, nil
}

// toSession — маппинг ответа платформы в domain.Session.
// Срок жизни: expiresIn из ответа, иначе exp из access-токена (без проверки подписи)
func (c *client) toSession(res sessionResponse) (*domain.Session, error) {
	if res.AccessToken == "" || res.RefreshToken == "" {
		return nil, fmt.Errorf("%w: incomplete session payload", errs.ErrUpstream)
	}

	var expiresAt time.Time
	if res.ExpiresIn > 0 {
		expiresAt = c.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	} else if exp, err := tokenExpiry(res.AccessToken); err == nil {
		expiresAt = exp
	}

	return &domain.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         domain.User{ID: res.User.ID, Email: res.User.Email},
	}, nil
}

func (c *client) doJSON(ctx context.Context, method, path, bearer string, body, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("auth client: marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.base.JoinPath(path).String(), rd)
	if err != nil {
		return fmt.Errorf("auth client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", errs.ErrUpstream, err)
		}
	}

	return nil
}

func decodeError(res *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(res.Body).Decode(&body)

	base := errs.FromStatus(res.StatusCode)
	if body.Error.Message != "" {
		return fmt.Errorf("%w: %s", base, body.Error.Message)
	}

	return fmt.Errorf("%w: status %d", base, res.StatusCode)
}
