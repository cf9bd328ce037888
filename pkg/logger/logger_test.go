package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := WithRequestID(context.Background(), "r-1")
	ctx = WithHost(ctx, "localhost:5001")
	ctx = WithQuery(ctx, "til 3")

	FromContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "localhost:5001", fields["host"])
	assert.Equal(t, "til 3", fields["query"])
}

func TestSetAndGet(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Get()
	Set(zap.New(core))
	defer Set(prev)

	Info("via global", zap.String("component", "test"))
	With(zap.Int("n", 1)).Warn("child")

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "child", logs.All()[1].Message)
}
