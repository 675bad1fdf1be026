package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testLogger(lvl zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(lvl)

	return NewLogger(zap.New(core)), logs
}

func testCtx() context.Context {
	ctx := WithID(context.Background(), "abc-123")

	return WithHeaders(ctx, map[string]string{"X-Event-Id": "evt-42"})
}

func TestLoggerMessagePrefix(t *testing.T) {
	logger, logs := testLogger(zapcore.DebugLevel)

	logger.Info(testCtx(), "fetching user")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "[CorrelationId: abc-123, X-Event-Id: evt-42] fetching user", entries[0].Message)
}

func TestLoggerMessagePrefixWithoutID(t *testing.T) {
	logger, logs := testLogger(zapcore.DebugLevel)

	// headers captured but no id, as with auto-generate disabled
	ctx := WithHeaders(context.Background(), map[string]string{"X-Event-Id": "evt-42"})

	logger.Info(ctx, "fetching user")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "[X-Event-Id: evt-42] fetching user", entries[0].Message)
}

func TestLoggerFields(t *testing.T) {
	logger, logs := testLogger(zapcore.DebugLevel)

	logger.Info(testCtx(), "fetching user", zap.String("user", "meta"))

	entries := logs.All()
	assert.Len(t, entries, 1)

	fields := entries[0].Context
	assert.Len(t, fields, 3)

	// correlation fields first, then caller fields, nothing overwritten
	assert.Equal(t, IDLogField, fields[0].Key)
	assert.Equal(t, "abc-123", fields[0].String)
	assert.Equal(t, "X-Event-Id", fields[1].Key)
	assert.Equal(t, "evt-42", fields[1].String)
	assert.Equal(t, "user", fields[2].Key)
	assert.Equal(t, "meta", fields[2].String)
}

func TestLoggerCallerFieldsNotOverwritten(t *testing.T) {
	logger, logs := testLogger(zapcore.DebugLevel)

	logger.Info(testCtx(), "msg", zap.String(IDLogField, "caller-value"))

	fields := logs.All()[0].Context
	assert.Len(t, fields, 3)
	assert.Equal(t, "abc-123", fields[0].String)
	assert.Equal(t, "caller-value", fields[2].String)
}

func TestLoggerWithoutContext(t *testing.T) {
	logger, logs := testLogger(zapcore.DebugLevel)

	logger.Info(context.Background(), "plain message")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "plain message", entries[0].Message)
	assert.Empty(t, entries[0].Context)
}

func TestLoggerLevelGating(t *testing.T) {
	logger, logs := testLogger(zapcore.InfoLevel)

	logger.Debug(testCtx(), "should be dropped")
	assert.Zero(t, logs.Len())

	logger.Error(testCtx(), "kept")
	assert.Equal(t, 1, logs.Len())
}

func TestLoggerScopedWith(t *testing.T) {
	logger, logs := testLogger(zapcore.DebugLevel)

	scoped := logger.With(zap.String("component", "worker"))
	scoped.Info(testCtx(), "tick")

	fields := logs.All()[0].Context
	assert.Len(t, fields, 3)

	// scopes opened deep in a call stack still carry correlation fields
	assert.Equal(t, IDLogField, fields[0].Key)
	assert.Equal(t, "X-Event-Id", fields[1].Key)
	assert.Equal(t, "component", fields[2].Key)
}

func TestLoggerFor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLogger(zap.New(core))

	plain := logger.For(testCtx())
	plain.Info("handed off")

	fields := logs.All()[0].Context
	assert.Len(t, fields, 2)
	assert.Equal(t, IDLogField, fields[0].Key)
}
