// Package correlation propagates a per-request correlation ID and a
// configured set of captured headers across call chains, and enriches
// log records and outbound requests with them. The carrier is the
// standard context.Context: values set before spawning a goroutine or
// continuation are visible to it, and writes made inside a branch never
// leak back to the spawner or to sibling branches.
package correlation

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

var correlationContextKey = &contextKey{}

// Context is the ambient correlation state for one logical call chain.
// Stored values are snapshots; derive a new Context rather than mutating
// one that is already attached to a context.Context.
type Context struct {
	// ID is the correlation identifier for the call chain.
	ID string

	// Headers holds the captured additional headers, keyed by canonical
	// header name, single value each.
	Headers map[string]string

	// Source labels the trigger that started the chain (http, queue,
	// stream, timer, blob).
	Source string

	// Created is when the chain's correlation context was established.
	Created time.Time

	// Metadata carries source-specific details such as a timer schedule
	// or a blob path.
	Metadata map[string]string
}

// NewContext returns a context annotated with the given correlation state.
func NewContext(ctx context.Context, cc Context) context.Context {
	if cc.Created.IsZero() {
		cc.Created = time.Now()
	}

	return context.WithValue(ctx, correlationContextKey, cc)
}

// FromContext extracts the correlation state from a context.
func FromContext(ctx context.Context) (Context, bool) {
	cc, ok := ctx.Value(correlationContextKey).(Context)
	return cc, ok
}

// WithID returns a context annotated with a correlation ID, preserving any
// previously captured headers and source details.
func WithID(ctx context.Context, id string) context.Context {
	cc, _ := FromContext(ctx)
	cc.ID = id

	return NewContext(ctx, cc)
}

// ID returns the current correlation ID, if one has been set.
func ID(ctx context.Context) (string, bool) {
	cc, ok := FromContext(ctx)
	if !ok || cc.ID == "" {
		return "", false
	}

	return cc.ID, true
}

// WithHeaders returns a context whose captured header set is replaced by the
// given map. The map is copied with canonicalized names, so later changes by
// the caller are not observable through the returned context.
func WithHeaders(ctx context.Context, headers map[string]string) context.Context {
	cc, _ := FromContext(ctx)
	cc.Headers = canonicalize(headers)

	return NewContext(ctx, cc)
}

// HeaderValues returns a copy of the captured header set for the current
// call chain. Mutating the returned map does not affect the context.
func HeaderValues(ctx context.Context) map[string]string {
	cc, ok := FromContext(ctx)
	if !ok || len(cc.Headers) == 0 {
		return nil
	}

	out := make(map[string]string, len(cc.Headers))
	for k, v := range cc.Headers {
		out[k] = v
	}

	return out
}

func canonicalize(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[http.CanonicalHeaderKey(k)] = v
	}

	return out
}
