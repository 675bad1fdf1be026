package eventbus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/metal-toolbox/correlator/pkg/correlation"
	events "github.com/metal-toolbox/correlator/pkg/events/v1alpha1"
)

const (
	defaultSubject = "events"
	natsTracerName = "github.com/metal-toolbox/correlator:nats"
)

type conn interface {
	Publish(subject string, data []byte) error
	PublishMsg(m *nats.Msg) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// Handler processes one inbound event. The context already carries the
// message's correlation state.
type Handler func(ctx context.Context, event *events.Event) error

// Client is an event bus client with some configuration
type Client struct {
	conn      conn
	logger    *zap.Logger
	elogger   *correlation.Logger
	extractor *correlation.Extractor
	prefix    string
	tracer    trace.Tracer
}

// Option is a functional configuration option for correlator eventing
type Option func(c *Client)

// NewClient configures and establishes a new event bus client connection
func NewClient(opts ...Option) *Client {
	client := Client{
		logger:    zap.NewNop(),
		extractor: correlation.NewExtractor(correlation.NewConfig()),
		prefix:    defaultSubject,
		tracer:    otel.GetTracerProvider().Tracer(natsTracerName),
	}

	for _, opt := range opts {
		opt(&client)
	}

	client.elogger = correlation.NewLogger(client.logger)

	return &client
}

// WithNATSConn sets the nats connection
func WithNATSConn(nc conn) Option {
	return func(c *Client) {
		c.conn = nc
	}
}

// WithNATSPrefix sets the nats subscription prefix
func WithNATSPrefix(p string) Option {
	return func(c *Client) {
		c.prefix = p
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithExtractor sets the correlation extractor used to stamp outbound
// messages and rebuild context from inbound ones
func WithExtractor(e *correlation.Extractor) Option {
	return func(c *Client) {
		c.extractor = e
	}
}

// Shutdown drains the event bus and closes the connections
func (c *Client) Shutdown() error {
	return c.conn.Drain()
}

// Publish an event on the event bus. The current chain's correlation ID and
// captured headers are added to the message headers unless the publisher
// already set them; a missing ID is generated so every message on the bus
// is correlatable.
func (c *Client) Publish(ctx context.Context, sub string, event *events.Event) error {
	if event == nil {
		return ErrEmptyEvent
	}

	subject := c.prefix + "." + sub

	c.elogger.Info(ctx, "publishing event to the event bus", zap.String("subject", subject), zap.Any("action", event.Action))

	ctx, span := c.tracer.Start(ctx, "events.nats.PublishEvent", trace.WithAttributes(
		attribute.String("events.action", event.Action),
		attribute.String("event.subject", subject),
	))

	defer span.End()

	// Propagate trace context into the message for the subscriber
	var mapCarrier propagation.MapCarrier = make(map[string]string)

	otel.GetTextMapPropagator().Inject(ctx, mapCarrier)

	event.TraceContext = mapCarrier

	var headers nats.Header = event.Headers

	if headers == nil {
		headers = nats.Header{}
	}

	idHeader := c.extractor.Config().HeaderName()

	if v := headers.Get(idHeader); v == "" {
		id, ok := correlation.ID(ctx)
		if !ok {
			id = c.extractor.NewID()
		}

		headers.Set(idHeader, id)
	}

	for name, value := range correlation.HeaderValues(ctx) {
		if name == idHeader {
			continue
		}

		if headers.Get(name) == "" {
			headers.Set(name, value)
		}
	}

	span.SetAttributes(attribute.String("event.correlation_id", headers.Get(idHeader)))

	event.Headers = headers

	payload, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    payload,
		Header:  headers,
	}

	return c.conn.PublishMsg(msg)
}

// Subscribe registers a handler for a subject. For every delivered message
// the correlation context is rebuilt from the message headers (generating
// an ID when the publisher sent none), the remote trace context is
// restored, and the handler runs with both attached. Handler failures are
// logged with full correlation context instead of being swallowed silently.
func (c *Client) Subscribe(sub string, handler Handler) (*nats.Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	subject := c.prefix + "." + sub

	return c.conn.Subscribe(subject, func(msg *nats.Msg) {
		c.process(msg, handler)
	})
}

func (c *Client) process(msg *nats.Msg, handler Handler) {
	event := &events.Event{}

	if err := json.Unmarshal(msg.Data, event); err != nil {
		c.logger.Error("failed to unmarshal event payload", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier(event.TraceContext))

	src := correlation.QueueSource{
		Header: msg.Header,
		Body:   msg.Data,

		// fall back to headers embedded in the event body when the
		// message itself carries none
		BodyPath: "headers." + c.extractor.Config().HeaderName() + ".0",
	}

	ctx, id := src.Correlate(ctx, c.extractor)

	ctx, span := c.tracer.Start(ctx, "events.nats.ReceiveEvent", trace.WithAttributes(
		attribute.String("events.action", event.Action),
		attribute.String("event.subject", msg.Subject),
		attribute.String("event.correlation_id", id),
	))

	defer span.End()

	if err := handler(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		c.elogger.Error(ctx, "event handler failed",
			zap.String("subject", msg.Subject),
			zap.String("action", event.Action),
			zap.Error(err),
		)
	}
}
