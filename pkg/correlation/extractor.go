package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Extractor reads and establishes correlation state on a context according
// to an immutable Config. The zero value uses defaults.
type Extractor struct {
	cfg Config
}

// NewExtractor returns an Extractor bound to the given config.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Config returns the extractor's configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// NewID generates a fresh correlation identifier.
func (e *Extractor) NewID() string {
	return uuid.New().String()
}

// EnsureID returns the context's correlation ID, generating and storing a
// fresh one when none is set. The ID is chosen before the derived context
// becomes visible, so a chain never observes an empty-then-set window.
func (e *Extractor) EnsureID(ctx context.Context) (context.Context, string) {
	if id, ok := ID(ctx); ok {
		return ctx, id
	}

	id := e.NewID()

	return WithID(ctx, id), id
}

// Adopt stores a correlation ID presented by an external source. An empty
// id falls back to EnsureID semantics, honoring the auto-generate flag.
func (e *Extractor) Adopt(ctx context.Context, id string) (context.Context, string) {
	if id != "" {
		return WithID(ctx, id), id
	}

	if !e.cfg.AutoGenerate() {
		return ctx, ""
	}

	return e.EnsureID(ctx)
}

// ExtractOrCreate looks up the configured correlation header (case
// insensitive) and stores its value, generating one when absent unless
// auto-generate is disabled. When additional header names are given they
// override the configured capture allow-list; each name present and
// non-empty in headers is captured with its first value. The captured set
// is only replaced when at least one header was found. Missing or
// malformed headers never produce an error.
func (e *Extractor) ExtractOrCreate(ctx context.Context, headers http.Header, additional ...string) (context.Context, string) {
	names := additional
	if len(names) == 0 {
		names = e.cfg.AdditionalHeaders()
	}

	captured := captureHeaders(headers, names)
	if len(captured) > 0 {
		ctx = WithHeaders(ctx, captured)
	}

	id := ""
	if headers != nil {
		id = headers.Get(e.cfg.HeaderName())
	}

	return e.Adopt(ctx, id)
}

// HeaderValue returns the value the chain holds for a header name: the
// correlation ID when the name matches the configured ID header, otherwise
// a lookup in the captured header set.
func (e *Extractor) HeaderValue(ctx context.Context, name string) (string, bool) {
	canonical := http.CanonicalHeaderKey(name)

	if canonical == e.cfg.HeaderName() {
		return ID(ctx)
	}

	cc, ok := FromContext(ctx)
	if !ok {
		return "", false
	}

	v, ok := cc.Headers[canonical]

	return v, ok
}

// WithCapturedHeaders replaces the captured header set for the current call
// chain. The replacement is wholesale, not a merge.
func (e *Extractor) WithCapturedHeaders(ctx context.Context, headers map[string]string) context.Context {
	return WithHeaders(ctx, headers)
}

func captureHeaders(headers http.Header, names []string) map[string]string {
	if headers == nil || len(names) == 0 {
		return nil
	}

	var captured map[string]string

	for _, name := range names {
		// Get returns the first value when a header was sent multiple times
		if v := headers.Get(name); v != "" {
			if captured == nil {
				captured = make(map[string]string, len(names))
			}

			captured[http.CanonicalHeaderKey(name)] = v
		}
	}

	return captured
}
