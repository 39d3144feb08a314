package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
)

type fakeAPI struct {
	refreshFn func(ctx context.Context, refreshToken string) (*domain.Session, error)
	signOutFn func(ctx context.Context, accessToken string) error
}

func (f *fakeAPI) SignInWithEmailLink(ctx context.Context, email, redirectTo string) error {
	return nil
}

func (f *fakeAPI) SignInWithOAuth(provider, redirectTo string) (string, error) {
	return "", nil
}

func (f *fakeAPI) VerifyCode(ctx context.Context, code string) (*domain.Session, error) {
	return nil, errors.New("unexpected VerifyCode")
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if f.refreshFn == nil {
		return nil, errors.New("unexpected Refresh")
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeAPI) SignOut(ctx context.Context, accessToken string) error {
	if f.signOutFn == nil {
		return nil
	}
	return f.signOutFn(ctx, accessToken)
}

func (f *fakeAPI) User(ctx context.Context, accessToken string) (*domain.User, error) {
	return nil, errors.New("unexpected User")
}

func recvChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()

	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("no change event within 2s")
		return Change{}
	}
}

func sessionFor(user string, exp time.Time) *domain.Session {
	return &domain.Session{
		AccessToken:  "at-" + user,
		RefreshToken: "rt-" + user,
		ExpiresAt:    exp,
		User:         domain.User{ID: user, Email: user + "@example.com"},
	}
}

func TestSessionStore_ChangeSequence(t *testing.T) {
	s := NewSessionStore(&fakeAPI{})
	ch, cancel := s.Subscribe()
	defer cancel()

	exp := time.Now().Add(time.Hour)

	s.Set(sessionFor("u1", exp))
	if c := recvChange(t, ch); c.Type != SignedIn || c.Session.User.ID != "u1" {
		t.Fatalf("expected signed_in for u1, got %+v", c)
	}

	// тот же пользователь, новые токены
	s.Set(sessionFor("u1", exp.Add(time.Hour)))
	if c := recvChange(t, ch); c.Type != TokenRefreshed {
		t.Fatalf("expected token_refreshed, got %+v", c)
	}

	// другой пользователь
	s.Set(sessionFor("u2", exp))
	if c := recvChange(t, ch); c.Type != SignedIn || c.Session.User.ID != "u2" {
		t.Fatalf("expected signed_in for u2, got %+v", c)
	}
}

func TestSessionStore_SignOut(t *testing.T) {
	var gotToken string
	api := &fakeAPI{signOutFn: func(ctx context.Context, accessToken string) error {
		gotToken = accessToken
		return nil
	}}

	s := NewSessionStore(api)
	s.Set(sessionFor("u1", time.Now().Add(time.Hour)))

	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.SignOut(context.Background()); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if gotToken != "at-u1" {
		t.Fatalf("platform signout not called with access token, got %q", gotToken)
	}
	if c := recvChange(t, ch); c.Type != SignedOut || c.Session != nil {
		t.Fatalf("expected signed_out with nil session, got %+v", c)
	}
	if s.Current() != nil {
		t.Fatalf("session must be cleared")
	}

	if err := s.SignOut(context.Background()); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("second signout should report not signed in, got %v", err)
	}
}

func TestSessionStore_SubscribeCancelClosesChannel(t *testing.T) {
	s := NewSessionStore(&fakeAPI{})

	ch, cancel := s.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("cancel must close the change channel")
	}

	// отписка идемпотентна
	cancel()
}

func TestSessionStore_AutoRefresh(t *testing.T) {
	fresh := sessionFor("u1", time.Now().Add(time.Hour))
	api := &fakeAPI{refreshFn: func(ctx context.Context, refreshToken string) (*domain.Session, error) {
		if refreshToken != "rt-u1" {
			t.Errorf("refresh called with wrong token: %q", refreshToken)
		}
		return fresh, nil
	}}

	s := NewSessionStore(api)
	s.refreshLead = 0
	s.retryFloor = 10 * time.Millisecond

	s.Set(sessionFor("u1", time.Now().Add(50*time.Millisecond)))

	ch, cancel := s.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() { _ = s.Run(ctx) }()

	if c := recvChange(t, ch); c.Type != TokenRefreshed {
		t.Fatalf("expected token_refreshed from auto refresh, got %+v", c)
	}
	if got := s.AccessToken(); got != "at-u1" {
		t.Fatalf("refreshed session not stored, got %q", got)
	}
}

func TestSessionStore_RefreshFailureAfterExpiry(t *testing.T) {
	api := &fakeAPI{refreshFn: func(ctx context.Context, refreshToken string) (*domain.Session, error) {
		return nil, errors.New("refresh token revoked")
	}}

	s := NewSessionStore(api)
	s.refreshLead = 0
	s.retryFloor = 10 * time.Millisecond

	s.Set(sessionFor("u1", time.Now().Add(20*time.Millisecond)))

	ch, cancel := s.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() { _ = s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-ch:
			if c.Type == SignedOut {
				if s.Current() != nil {
					t.Fatalf("session must be cleared after terminal refresh failure")
				}
				return
			}
		case <-deadline:
			t.Fatalf("no signed_out after refresh failure")
		}
	}
}
