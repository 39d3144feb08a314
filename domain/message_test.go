package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

func TestMessageInput_Validate(t *testing.T) {
	in := domain.MessageInput{Content: "  hello  "}
	if err := in.Validate(); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}
	if in.Content != "hello" {
		t.Fatalf("content not trimmed: %q", in.Content)
	}

	empty := domain.MessageInput{Content: "\n\t "}
	if err := empty.Validate(); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("blank content must be rejected, got %v", err)
	}

	long := domain.MessageInput{Content: strings.Repeat("a", 4001)}
	if err := long.Validate(); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("oversized content must be rejected, got %v", err)
	}
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s := domain.Session{ExpiresAt: now.Add(time.Minute)}

	if s.IsExpired(now) {
		t.Fatalf("session with future expiry reported expired")
	}
	if !s.IsExpired(now.Add(2 * time.Minute)) {
		t.Fatalf("session past expiry reported live")
	}
}
