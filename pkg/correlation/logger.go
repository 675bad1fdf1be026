package correlation

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IDLogField is the structured log field carrying the correlation ID.
const IDLogField = "correlation_id"

// Logger wraps a zap logger so every record carries the chain's correlation
// ID and captured headers without call sites adding them. The
// human-readable message is prefixed with a bracketed summary, e.g.
// "[CorrelationId: abc-123] fetching user", so plain-text log viewers keep
// traceability, and the same values are emitted as structured fields.
// Correlation fields are additive context and never replace fields passed
// by the caller.
type Logger struct {
	base   *zap.Logger
	scoped []zap.Field
}

// NewLogger wraps base in a correlation-enriching logger. A nil base
// falls back to a no-op logger.
func NewLogger(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}

	return &Logger{base: base}
}

// With returns a scoped logger carrying the given fields on every record.
// Scopes opened deep in a call stack still stamp the correlation fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	scoped := make([]zap.Field, 0, len(l.scoped)+len(fields))
	scoped = append(scoped, l.scoped...)
	scoped = append(scoped, fields...)

	return &Logger{base: l.base, scoped: scoped}
}

// For returns a plain zap logger pre-enriched with the chain's correlation
// fields, for handing to components that take a *zap.Logger.
func (l *Logger) For(ctx context.Context) *zap.Logger {
	return l.base.With(contextFields(ctx)...)
}

// Debug logs an enriched record at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

// Info logs an enriched record at info level.
func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs an enriched record at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs an enriched record at error level.
func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	// gate on level before doing any enrichment work
	if !l.base.Core().Enabled(lvl) {
		return
	}

	ce := l.base.Check(lvl, prefixMessage(ctx, msg))
	if ce == nil {
		return
	}

	enriched := make([]zap.Field, 0, len(fields)+len(l.scoped)+4)
	enriched = append(enriched, contextFields(ctx)...)
	enriched = append(enriched, l.scoped...)
	enriched = append(enriched, fields...)

	ce.Write(enriched...)
}

// contextFields returns the correlation ID and each captured header as
// structured fields, ID first, headers in name order.
func contextFields(ctx context.Context) []zap.Field {
	cc, ok := FromContext(ctx)
	if !ok {
		return nil
	}

	fields := make([]zap.Field, 0, len(cc.Headers)+1)

	if cc.ID != "" {
		fields = append(fields, zap.String(IDLogField, cc.ID))
	}

	for _, name := range sortedHeaderNames(cc.Headers) {
		fields = append(fields, zap.String(name, cc.Headers[name]))
	}

	return fields
}

func prefixMessage(ctx context.Context, msg string) string {
	cc, ok := FromContext(ctx)
	if !ok || (cc.ID == "" && len(cc.Headers) == 0) {
		return msg
	}

	var b strings.Builder

	b.WriteString("[")

	if cc.ID != "" {
		b.WriteString("CorrelationId: ")
		b.WriteString(cc.ID)
	}

	for _, name := range sortedHeaderNames(cc.Headers) {
		if b.Len() > 1 {
			b.WriteString(", ")
		}

		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(cc.Headers[name])
	}

	b.WriteString("] ")
	b.WriteString(msg)

	return b.String()
}

func sortedHeaderNames(headers map[string]string) []string {
	if len(headers) == 0 {
		return nil
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
