package logger_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/wmoralesdev/ues-live-go/pkg/logger"
)

func traceCtx(t *testing.T) context.Context {
	t.Helper()

	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
	})

	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestAttrsFromCtx_PropagatesTraceIDs(t *testing.T) {
	ctx := traceCtx(t)

	out := captureStdOut(func() {
		logger.Init(logger.Config{
			Service:          "ueslive",
			Env:              logger.EnvProd,
			Backend:          logger.BackendZap,
			SampleInitial:    100000,
			SampleThereafter: 100000,
			SampleTick:       1,
		})

		attrs := logger.AttrsFromCtx(ctx)
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		slog.InfoContext(ctx, "with trace", args...)
	})

	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON, got: %s, err=%v", out, err)
	}

	if m["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace_id missing in log: %v", m)
	}
	if m["span_id"] != "00f067aa0ba902b7" {
		t.Fatalf("span_id missing in log: %v", m)
	}
	if m["msg"] != "with trace" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
}

func TestAttrsFromCtx_NoSpan(t *testing.T) {
	if got := logger.AttrsFromCtx(context.Background()); got != nil {
		t.Fatalf("expected nil attrs without span, got %v", got)
	}
}

func TestFromCtx_WithTrace(t *testing.T) {
	ctx := traceCtx(t)

	out := captureStdOut(func() {
		logger.Init(logger.Config{
			Service:          "ueslive",
			Env:              logger.EnvProd,
			Backend:          logger.BackendZap,
			SampleInitial:    100000,
			SampleThereafter: 100000,
			SampleTick:       1,
		})

		logger.FromCtx(ctx).Info("feed synced")
	})

	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON, got: %s, err=%v", out, err)
	}
	if m["trace_id"] == nil || m["span_id"] == nil {
		t.Fatalf("trace attrs missing: %v", m)
	}
}
