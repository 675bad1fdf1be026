package correlation

import "net/http"

// DefaultHeaderName is the header carrying the correlation ID when no
// override is configured.
const DefaultHeaderName = "X-Correlation-Id"

// Config controls how correlation IDs are extracted, generated and
// re-emitted. It is built once at startup and read-only afterwards, so it
// is safe to share across goroutines without locking.
type Config struct {
	headerName              string
	additionalHeaders       []string
	autoGenerate            bool
	addToResponse           bool
	addAdditionalToResponse bool
	logExecution            bool
}

// Option is a functional configuration option
type Option func(c *Config)

// WithHeaderName overrides the correlation ID header name
func WithHeaderName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.headerName = http.CanonicalHeaderKey(name)
		}
	}
}

// WithAdditionalHeaders sets the allow-list of additional header names to
// capture alongside the correlation ID
func WithAdditionalHeaders(names ...string) Option {
	return func(c *Config) {
		c.additionalHeaders = c.additionalHeaders[:0]
		for _, n := range names {
			if n != "" {
				c.additionalHeaders = append(c.additionalHeaders, http.CanonicalHeaderKey(n))
			}
		}
	}
}

// WithAutoGenerate controls whether a missing inbound ID is replaced with a
// freshly generated one (default true)
func WithAutoGenerate(enabled bool) Option {
	return func(c *Config) {
		c.autoGenerate = enabled
	}
}

// WithResponseHeader controls whether the correlation ID is mirrored onto
// HTTP responses (default true)
func WithResponseHeader(enabled bool) Option {
	return func(c *Config) {
		c.addToResponse = enabled
	}
}

// WithAdditionalResponseHeaders controls whether captured additional headers
// are mirrored onto HTTP responses (default false)
func WithAdditionalResponseHeaders(enabled bool) Option {
	return func(c *Config) {
		c.addAdditionalToResponse = enabled
	}
}

// WithExecutionLogging controls whether boundaries log unit-of-work
// start/completion (default true)
func WithExecutionLogging(enabled bool) Option {
	return func(c *Config) {
		c.logExecution = enabled
	}
}

// NewConfig builds an immutable Config from the given options.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		headerName:    DefaultHeaderName,
		autoGenerate:  true,
		addToResponse: true,
		logExecution:  true,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// HeaderName returns the configured correlation ID header name.
func (c Config) HeaderName() string {
	if c.headerName == "" {
		return DefaultHeaderName
	}

	return c.headerName
}

// AdditionalHeaders returns a copy of the configured additional header
// allow-list.
func (c Config) AdditionalHeaders() []string {
	if len(c.additionalHeaders) == 0 {
		return nil
	}

	out := make([]string, len(c.additionalHeaders))
	copy(out, c.additionalHeaders)

	return out
}

// AutoGenerate reports whether missing inbound IDs are auto-generated.
func (c Config) AutoGenerate() bool { return c.autoGenerate }

// AddToResponse reports whether the ID is mirrored onto responses.
func (c Config) AddToResponse() bool { return c.addToResponse }

// AddAdditionalToResponse reports whether captured headers are mirrored
// onto responses.
func (c Config) AddAdditionalToResponse() bool { return c.addAdditionalToResponse }

// LogExecution reports whether boundaries log unit-of-work completion.
func (c Config) LogExecution() bool { return c.logExecution }
