package correlation

import "context"

// Scope is a captured snapshot of a chain's correlation state for
// re-establishing it on execution units that do not inherit the request
// context, such as goroutines started from context.Background, timer
// callbacks, or pooled workers. Context values propagate automatically
// through everything derived from the request context; a Scope is the one
// explicit step required when crossing a scheduling boundary that drops
// the context.
type Scope struct {
	cc Context
	ok bool
}

// Capture snapshots the correlation state of ctx.
func Capture(ctx context.Context) Scope {
	cc, ok := FromContext(ctx)

	return Scope{cc: cc, ok: ok}
}

// Attach returns ctx annotated with the captured correlation state. When
// nothing was captured, ctx is returned unchanged.
func (s Scope) Attach(ctx context.Context) context.Context {
	if !s.ok {
		return ctx
	}

	return NewContext(ctx, s.cc)
}

// Run invokes fn with the captured correlation state attached to ctx, so
// logging and outbound calls inside fn behave as if still inside the
// originating call chain.
func (s Scope) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(s.Attach(ctx))
}
