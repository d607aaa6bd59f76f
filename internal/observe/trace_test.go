package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
)

func TestStartSpan_UsesGlobalProvider(t *testing.T) {
	exp := withGlobalTracer(t)

	ctx, span := StartSpan(context.Background(), "dictionary.lookup")
	if cid := CorrelationID(ctx); len(cid) != 32 {
		t.Errorf("CorrelationID = %q, want 32 hex chars", cid)
	}
	EndSpan(span, nil)

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "dictionary.lookup" {
		t.Fatalf("spans = %+v, want one dictionary.lookup span", spans)
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestEndSpan_RecordsError(t *testing.T) {
	exp := withGlobalTracer(t)

	_, span := StartSpan(context.Background(), "tts.synthesize")
	EndSpan(span, errors.New("synthesizer down"))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "synthesizer down" {
		t.Errorf("status description = %q", spans[0].Status.Description)
	}
	if len(spans[0].Events) == 0 {
		t.Error("error event not recorded")
	}
}

func TestLogger(t *testing.T) {
	withGlobalTracer(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	spanCtx, span := StartSpan(context.Background(), "queue.worker")
	defer span.End()

	tests := []struct {
		name      string
		ctx       context.Context
		wantTrace bool
	}{
		{"with span", spanCtx, true},
		{"without span", context.Background(), false},
	}
	for _, tt := range tests {
		buf.Reset()
		Logger(tt.ctx).Info("definition sent", "channel_id", "text-1")
		out := buf.String()

		if got := strings.Contains(out, "trace_id="+CorrelationID(spanCtx)); got != tt.wantTrace {
			t.Errorf("%s: trace_id present = %v, want %v (%s)", tt.name, got, tt.wantTrace, out)
		}
		if got := strings.Contains(out, "span_id="); got != tt.wantTrace {
			t.Errorf("%s: span_id present = %v, want %v", tt.name, got, tt.wantTrace)
		}
		if !strings.Contains(out, "channel_id=text-1") {
			t.Errorf("%s: caller attributes lost: %s", tt.name, out)
		}
	}
}

func TestWithTrace_KeepsLoggerAttributes(t *testing.T) {
	withGlobalTracer(t)

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil)).With("component", "definition")

	ctx, span := StartSpan(context.Background(), "definition.process")
	defer span.End()

	WithTrace(ctx, base).Info("queued")
	out := buf.String()
	if !strings.Contains(out, "component=definition") || !strings.Contains(out, "trace_id="+CorrelationID(ctx)) {
		t.Errorf("log line = %s", out)
	}
	if WithTrace(context.Background(), base) != base {
		t.Error("WithTrace without a span should return the logger unchanged")
	}
}
