package trace

import (
	"context"
	"testing"
	"time"
)

func TestStartSpanCreatesRoot(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "discover")
	defer span.End()

	tc, ok := FromContext(ctx)
	if !ok {
		t.Fatal("span should inject trace context")
	}
	if tc.TraceID == "" || tc.SpanID == "" {
		t.Error("root span should have non-empty IDs")
	}
	if tc.ParentSpanID != "" {
		t.Error("root span should have no parent")
	}
}

func TestStartSpanChild(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "start")
	defer parent.End()

	_, child := StartSpan(ctx, "subscribe")
	defer child.End()

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child parent span should be parent's span ID")
	}
	if child.Ctx.SpanID == parent.Ctx.SpanID {
		t.Error("child must get a fresh span ID")
	}
}

func TestSpanDuration(t *testing.T) {
	_, span := StartSpan(context.Background(), "finalize")
	if span.Duration() != 0 {
		t.Error("duration should be zero before End")
	}
	time.Sleep(time.Millisecond)
	span.End()
	if span.Duration() <= 0 {
		t.Error("duration should be positive after End")
	}
}

func TestLoggerWithoutContext(t *testing.T) {
	if Logger(context.Background()) == nil {
		t.Fatal("Logger must never return nil")
	}
}
