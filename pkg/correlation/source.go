package correlation

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Source is a trigger-specific extraction policy. Each inbound boundary
// wraps its trigger payload in a Source variant and funnels it through the
// shared extractor; dispatch is static, there is no runtime inspection of
// payload types.
type Source interface {
	// Label identifies the trigger kind for logging and metadata.
	Label() string

	// Correlate establishes the correlation context for one inbound unit
	// of work, returning the derived context and the ID (empty when
	// extraction failed and auto-generate is disabled).
	Correlate(ctx context.Context, e *Extractor) (context.Context, string)
}

// HTTPSource extracts correlation state from inbound HTTP request headers.
type HTTPSource struct {
	Header http.Header
}

// Label implements Source.
func (s HTTPSource) Label() string { return "http" }

// Correlate implements Source.
func (s HTTPSource) Correlate(ctx context.Context, e *Extractor) (context.Context, string) {
	ctx, id := e.ExtractOrCreate(ctx, s.Header)

	return withSource(ctx, s.Label(), nil), id
}

// QueueSource extracts correlation state from a queue message: message
// headers first, then an optional dot-separated JSON path into the body.
type QueueSource struct {
	Header nats.Header
	Body   []byte

	// BodyPath is a dot-separated path to the correlation ID within the
	// JSON message body, consulted when the header is absent.
	BodyPath string
}

// Label implements Source.
func (s QueueSource) Label() string { return "queue" }

// Correlate implements Source.
func (s QueueSource) Correlate(ctx context.Context, e *Extractor) (context.Context, string) {
	// NATS preserves the sender's header casing, so rebuild with
	// canonical keys before any lookups.
	var headers http.Header

	if len(s.Header) > 0 {
		headers = make(http.Header, len(s.Header))

		for name, values := range s.Header {
			for _, v := range values {
				headers.Add(name, v)
			}
		}
	}

	if names := e.Config().AdditionalHeaders(); len(names) > 0 {
		if captured := captureHeaders(headers, names); len(captured) > 0 {
			ctx = WithHeaders(ctx, captured)
		}
	}

	id := ""
	if headers != nil {
		id = headers.Get(e.Config().HeaderName())
	}

	if id == "" && s.BodyPath != "" {
		id = jsonPathString(s.Body, s.BodyPath)
	}

	ctx, id = e.Adopt(ctx, id)

	return withSource(ctx, s.Label(), nil), id
}

// StreamSource extracts correlation state from an event-stream message's
// property map.
type StreamSource struct {
	Properties map[string]string
}

// Label implements Source.
func (s StreamSource) Label() string { return "stream" }

// Correlate implements Source.
func (s StreamSource) Correlate(ctx context.Context, e *Extractor) (context.Context, string) {
	headers := make(http.Header, len(s.Properties))
	for k, v := range s.Properties {
		headers.Set(k, v)
	}

	ctx, id := e.ExtractOrCreate(ctx, headers)

	return withSource(ctx, s.Label(), nil), id
}

// TimerSource establishes a fresh correlation ID for a scheduled tick.
// Timer triggers have no inbound payload, so an ID is always generated
// regardless of the auto-generate flag.
type TimerSource struct {
	Schedule string
}

// Label implements Source.
func (s TimerSource) Label() string { return "timer" }

// Correlate implements Source.
func (s TimerSource) Correlate(ctx context.Context, e *Extractor) (context.Context, string) {
	id := e.NewID()
	ctx = WithID(ctx, id)

	var meta map[string]string
	if s.Schedule != "" {
		meta = map[string]string{"schedule": s.Schedule}
	}

	return withSource(ctx, s.Label(), meta), id
}

// BlobSource extracts correlation state from blob metadata, falling back to
// a deterministic ID derived from the blob path so that repeated deliveries
// of the same object correlate together.
type BlobSource struct {
	Path     string
	Metadata map[string]string
}

// Label implements Source.
func (s BlobSource) Label() string { return "blob" }

// Correlate implements Source.
func (s BlobSource) Correlate(ctx context.Context, e *Extractor) (context.Context, string) {
	id := ""

	name := e.Config().HeaderName()
	for k, v := range s.Metadata {
		if strings.EqualFold(k, name) && v != "" {
			id = v
			break
		}
	}

	if id == "" && s.Path != "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.Path)).String()
	}

	ctx, id = e.Adopt(ctx, id)

	var meta map[string]string
	if s.Path != "" {
		meta = map[string]string{"path": s.Path}
	}

	return withSource(ctx, s.Label(), meta), id
}

func withSource(ctx context.Context, label string, meta map[string]string) context.Context {
	cc, _ := FromContext(ctx)
	cc.Source = label

	if len(meta) > 0 {
		merged := make(map[string]string, len(cc.Metadata)+len(meta))
		for k, v := range cc.Metadata {
			merged[k] = v
		}

		for k, v := range meta {
			merged[k] = v
		}

		cc.Metadata = merged
	}

	return NewContext(ctx, cc)
}

func jsonPathString(body []byte, path string) string {
	if len(body) == 0 {
		return ""
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}

	var current interface{} = doc

	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return ""
			}

			current = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return ""
			}

			current = node[i]
		default:
			return ""
		}
	}

	s, _ := current.(string)

	return s
}
