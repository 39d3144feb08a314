package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

func newTestClient(t *testing.T, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL, AnonKey: "anon-key", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestClient_VerifyCode(t *testing.T) {
	var gotAPIKey, gotReqID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/verify" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAPIKey = r.Header.Get("apikey")
		gotReqID = r.Header.Get("X-Request-ID")

		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["code"] != "abc123" {
			t.Errorf("code not forwarded: %v", req)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "at-1",
			"refreshToken": "rt-1",
			"expiresIn":    3600,
			"user":         map[string]string{"id": "u1", "email": "u1@example.com"},
		})
	})
	c, _ := newTestClient(t, handler)

	before := time.Now()
	sess, err := c.VerifyCode(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if gotAPIKey != "anon-key" {
		t.Fatalf("apikey header missing, got %q", gotAPIKey)
	}
	if gotReqID == "" {
		t.Fatalf("request id header missing")
	}
	if sess.AccessToken != "at-1" || sess.RefreshToken != "rt-1" {
		t.Fatalf("tokens not mapped: %+v", sess)
	}
	if sess.User.ID != "u1" || sess.User.Email != "u1@example.com" {
		t.Fatalf("user not mapped: %+v", sess.User)
	}
	if sess.ExpiresAt.Before(before.Add(59 * time.Minute)) {
		t.Fatalf("expiresIn not applied: %v", sess.ExpiresAt)
	}
}

func TestClient_VerifyCode_Unauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"code expired"}}`))
	})
	c, _ := newTestClient(t, handler)

	_, err := c.VerifyCode(context.Background(), "stale")
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "code expired") {
		t.Fatalf("platform message lost: %v", err)
	}
}

func TestClient_SignOut_SendsBearer(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logout" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, handler)

	if err := c.SignOut(context.Background(), "at-1"); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if gotAuth != "Bearer at-1" {
		t.Fatalf("bearer not sent: %q", gotAuth)
	}
}

func TestClient_SignInWithEmailLink(t *testing.T) {
	var body map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/otp" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	})
	c, _ := newTestClient(t, handler)

	err := c.SignInWithEmailLink(context.Background(), "u1@example.com", "http://127.0.0.1:53682/callback")
	if err != nil {
		t.Fatalf("magic link: %v", err)
	}
	if body["email"] != "u1@example.com" || body["redirectTo"] != "http://127.0.0.1:53682/callback" {
		t.Fatalf("request body wrong: %v", body)
	}
}

func TestClient_SignInWithOAuth_BuildsURL(t *testing.T) {
	c, err := New(Options{BaseURL: "https://acme.ueslive.io/auth/v1", AnonKey: "anon"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	raw, err := c.SignInWithOAuth("google", "http://127.0.0.1:53682/callback")
	if err != nil {
		t.Fatalf("oauth url: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse built url: %v", err)
	}
	if u.Path != "/auth/v1/authorize" {
		t.Fatalf("wrong path: %s", u.Path)
	}
	if u.Query().Get("provider") != "google" {
		t.Fatalf("provider missing: %s", raw)
	}
	if u.Query().Get("redirectTo") != "http://127.0.0.1:53682/callback" {
		t.Fatalf("redirect missing: %s", raw)
	}

	if _, err := c.SignInWithOAuth("", ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("empty provider must be rejected, got %v", err)
	}
}

func TestClient_User_RequiresToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected without a token")
	}))

	if _, err := c.User(context.Background(), ""); err == nil {
		t.Fatalf("expected not signed in error")
	}
}
