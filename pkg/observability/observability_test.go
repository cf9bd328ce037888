package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	Use(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })
	return sr
}

func TestTrace(t *testing.T) {
	sr := recordSpans(t)

	err := Trace(context.Background(), "query", func(ctx context.Context) error {
		_, span := StartSpan(ctx, "decode")
		span.SetAttribute("bytes", 42)
		span.End()
		return nil
	})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "kdbml.decode", spans[0].Name())
	assert.Equal(t, "kdbml.query", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("bytes", 42))
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestTraceError(t *testing.T) {
	sr := recordSpans(t)
	boom := errors.New("boom")

	err := Trace(context.Background(), "dial", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestSetAttributeKinds(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartSpan(context.Background(), "convert")
	span.SetAttribute("s", "x")
	span.SetAttribute("i64", int64(1))
	span.SetAttribute("f", 1.5)
	span.SetAttribute("b", true)
	span.SetAttribute("other", []int{1})
	span.End()

	attrs := sr.Ended()[0].Attributes()
	assert.Contains(t, attrs, attribute.String("s", "x"))
	assert.Contains(t, attrs, attribute.Int64("i64", 1))
	assert.Contains(t, attrs, attribute.Float64("f", 1.5))
	assert.Contains(t, attrs, attribute.Bool("b", true))
	assert.Contains(t, attrs, attribute.String("other", "[1]"))
}

func TestInit(t *testing.T) {
	require.NoError(t, Init(TracingConfig{Enabled: false}))

	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "stdout"
	var out bytes.Buffer
	cfg.Writer = &out
	require.NoError(t, Init(cfg))

	_, span := StartSpan(context.Background(), "export")
	span.End()
	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, out.String(), "kdbml.export")

	cfg.Exporter = "zipkin"
	assert.Error(t, Init(cfg))
}
