package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := StartServiceSpan(context.Background(), "invoice", "record_payment",
		WithAttribute(SpanAttrInvoiceNumber, "INV-20250101-ABCDEF"),
		WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "invoice.record_payment", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	v, ok := attrValue(spans[0].Attributes(), SpanAttrInvoiceNumber)
	require.True(t, ok)
	assert.Equal(t, "INV-20250101-ABCDEF", v.AsString())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	id := uuid.New()

	_, span := StartSpan(context.Background(), "test")
	SetAttributes(span,
		SpanAttrInvoiceID, id,
		"count", 3,
		"ok", true,
		42, "skipped",
		"dangling",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	v, ok := attrValue(attrs, SpanAttrInvoiceID)
	require.True(t, ok)
	assert.Equal(t, id.String(), v.AsString())
	v, _ = attrValue(attrs, "count")
	assert.Equal(t, int64(3), v.AsInt64())
	v, _ = attrValue(attrs, "ok")
	assert.True(t, v.AsBool())
	_, ok = attrValue(attrs, "dangling")
	assert.False(t, ok)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	t.Run("marks span failed", func(t *testing.T) {
		_, span := StartSpan(context.Background(), "failing")
		RecordError(span, errors.New("boom"))
		span.End()

		s := sr.Ended()[len(sr.Ended())-1]
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.Equal(t, "boom", s.Status().Description)
		require.Len(t, s.Events(), 1)
	})

	t.Run("nil error is ignored", func(t *testing.T) {
		_, span := StartSpan(context.Background(), "fine")
		RecordError(span, nil)
		span.End()

		s := sr.Ended()[len(sr.Ended())-1]
		assert.Equal(t, codes.Unset, s.Status().Code)
	})
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "with-event")
	AddEvent(span, "surplus_ignored", SpanAttrAmount, "12.50")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "surplus_ignored", events[0].Name)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
