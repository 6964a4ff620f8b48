package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

// TestStartSpan_ParentChild 子Span继承TraceID
func TestStartSpan_ParentChild(t *testing.T) {
	recorder := setupRecorder(t)

	ctx, parent := StartSpan(context.Background(), "order", "order.Pay")
	_, child := StartSpan(ctx, "payment", "payment.Pipeline")
	child.End()
	parent.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("期望2个Span，实际%d个", len(spans))
	}
	if spans[0].SpanContext().TraceID() != spans[1].SpanContext().TraceID() {
		t.Errorf("父子Span的TraceID应相同")
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Errorf("子Span的Parent应为父Span")
	}
}

// TestEndSpan_RecordsError 失败时Span状态为Error
func TestEndSpan_RecordsError(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "gateway", "gateway.Charge")
	EndSpan(span, errors.New("declined"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("期望1个Span，实际%d个", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("期望状态Error，实际%v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Errorf("期望记录错误事件")
	}
}

// TestExtractTraceID 有Span时返回32位TraceID，没有时返回空
func TestExtractTraceID(t *testing.T) {
	setupRecorder(t)

	if id := ExtractTraceID(context.Background()); id != "" {
		t.Errorf("没有Span时期望空字符串，实际%s", id)
	}

	ctx, span := StartSpan(context.Background(), "order", "order.Create")
	defer span.End()

	if id := ExtractTraceID(ctx); len(id) != 32 {
		t.Errorf("期望32位TraceID，实际%q", id)
	}
	if id := ExtractSpanID(ctx); len(id) != 16 {
		t.Errorf("期望16位SpanID，实际%q", id)
	}
}
