package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

func TestEventInput_Validate_EmptyTitle(t *testing.T) {
	in := domain.EventInput{
		Title:    "",
		Date:     time.Now().Add(24 * time.Hour),
		Location: "Main hall",
	}

	err := in.Validate()
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "title") {
		t.Fatalf("error should name the field, got %v", err)
	}
}

func TestEventInput_Validate_WhitespaceTitle(t *testing.T) {
	in := domain.EventInput{
		Title:    "   ",
		Date:     time.Now().Add(24 * time.Hour),
		Location: "Main hall",
	}

	if err := in.Validate(); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("whitespace-only title must be rejected, got %v", err)
	}
}

func TestEventInput_Validate_OK(t *testing.T) {
	desc := "  doors open at 18:00  "
	in := domain.EventInput{
		Title:       "  Launch  ",
		Description: &desc,
		Date:        time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC),
		Location:    "Auditorio",
	}

	if err := in.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if in.Title != "Launch" {
		t.Fatalf("title not trimmed: %q", in.Title)
	}
	if *in.Description != "doors open at 18:00" {
		t.Fatalf("description not trimmed: %q", *in.Description)
	}
}

func TestEventInput_Validate_ZeroDate(t *testing.T) {
	in := domain.EventInput{Title: "Launch", Location: "Auditorio"}

	err := in.Validate()
	if !errors.Is(err, errs.ErrInvalidInput) || !strings.Contains(err.Error(), "date") {
		t.Fatalf("zero date must be rejected, got %v", err)
	}
}
