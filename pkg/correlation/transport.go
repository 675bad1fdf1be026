package correlation

import (
	"net/http"

	"go.uber.org/zap"
)

// Transport is an http.RoundTripper that copies the current chain's
// correlation ID and captured headers onto outgoing requests. Injection is
// additive only: a header the caller already set is never overwritten.
// Transport failures are logged with correlation context and returned to
// the caller unchanged.
type Transport struct {
	inner  http.RoundTripper
	e      *Extractor
	logger *Logger
}

// TransportOption is a functional configuration option for Transport
type TransportOption func(t *Transport)

// WithTransportLogger sets the logger used for outbound call logging
func WithTransportLogger(l *Logger) TransportOption {
	return func(t *Transport) {
		t.logger = l
	}
}

// NewTransport wraps inner with correlation header propagation. A nil
// inner round tripper falls back to http.DefaultTransport.
func NewTransport(inner http.RoundTripper, e *Extractor, opts ...TransportOption) *Transport {
	if inner == nil {
		inner = http.DefaultTransport
	}

	t := &Transport{
		inner:  inner,
		e:      e,
		logger: NewLogger(nil),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cfg := t.e.Config()

	// RoundTrip must not mutate the caller's request
	out := req.Clone(ctx)

	if id, ok := ID(ctx); ok {
		if out.Header.Get(cfg.HeaderName()) == "" {
			out.Header.Set(cfg.HeaderName(), id)
		}
	}

	for name, value := range HeaderValues(ctx) {
		if name == cfg.HeaderName() {
			continue
		}

		if out.Header.Get(name) == "" {
			out.Header.Set(name, value)
		}
	}

	resp, err := t.inner.RoundTrip(out)
	if err != nil {
		t.logger.Error(ctx, "outbound request failed",
			zap.String("method", out.Method),
			zap.String("url", out.URL.String()),
			zap.Error(err),
		)

		return nil, err
	}

	if cfg.LogExecution() {
		t.logger.Debug(ctx, "outbound request complete",
			zap.String("method", out.Method),
			zap.String("url", out.URL.String()),
			zap.Int("status", resp.StatusCode),
		)
	}

	return resp, nil
}
