package eventbus

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/pkg/correlation"
	events "github.com/metal-toolbox/correlator/pkg/events/v1alpha1"
)

type mockConn struct {
	t   *testing.T
	err error

	published *nats.Msg
	cb        nats.MsgHandler
}

// Publish is a mock publish function
func (m *mockConn) Publish(_ string, _ []byte) error {
	return m.err
}

// PublishMsg is a mock publish message function
func (m *mockConn) PublishMsg(msg *nats.Msg) error {
	if m.err != nil {
		return m.err
	}

	m.t.Logf("got message on subject %s with payload %s", msg.Subject, string(msg.Data))

	m.published = msg

	return nil
}

// Subscribe is a mock subscribe function that just captures the callback
func (m *mockConn) Subscribe(_ string, cb nats.MsgHandler) (*nats.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}

	m.cb = cb

	return &nats.Subscription{}, nil
}

// Drain is a mock drain function
func (m *mockConn) Drain() error {
	return m.err
}

func Test_NewClient(t *testing.T) {
	client := NewClient()

	clientType := reflect.TypeOf(client).String()
	if clientType != "*eventbus.Client" {
		t.Errorf("expected type to be '*eventbus.Client', got %s", clientType)
	}

	if client.prefix != "events" {
		t.Errorf("expected default client prefix to be 'events', got %s", client.prefix)
	}

	client = NewClient(WithNATSPrefix("test-prefix"))
	if client.prefix != "test-prefix" {
		t.Errorf("expected client prefix to be 'test-prefix', got %s", client.prefix)
	}

	client = NewClient(WithLogger(zap.NewExample()))
	if client.logger.Core().Enabled(zap.DebugLevel) != true {
		t.Error("expected logger debug level to be 'true', got 'false'")
	}
}

func TestClient_Publish(t *testing.T) {
	t.Run("empty event", func(t *testing.T) {
		client := NewClient(WithNATSConn(&mockConn{t: t}))

		err := client.Publish(context.Background(), "test", nil)
		assert.ErrorIs(t, err, ErrEmptyEvent)
	})

	t.Run("correlation id from context", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(WithNATSConn(conn))

		ctx := correlation.WithID(context.Background(), "abc-123")
		ctx = correlation.WithHeaders(ctx, map[string]string{"X-Event-Id": "evt-42"})

		err := client.Publish(ctx, "test", &events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventNotify,
		})
		assert.NoError(t, err)
		assert.Equal(t, "events.test", conn.published.Subject)
		assert.Equal(t, "abc-123", conn.published.Header.Get("X-Correlation-Id"))
		assert.Equal(t, "evt-42", conn.published.Header.Get("X-Event-Id"))

		event := &events.Event{}
		assert.NoError(t, json.Unmarshal(conn.published.Data, event))
		assert.Equal(t, "abc-123", nats.Header(event.Headers).Get("X-Correlation-Id"))
	})

	t.Run("missing id generates one", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(WithNATSConn(conn))

		err := client.Publish(context.Background(), "test", &events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventNotify,
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, conn.published.Header.Get("X-Correlation-Id"))
	})

	t.Run("publisher headers win", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(WithNATSConn(conn))

		ctx := correlation.WithID(context.Background(), "abc-123")

		err := client.Publish(ctx, "test", &events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventNotify,
			Headers: map[string][]string{"X-Correlation-Id": {"explicit"}},
		})
		assert.NoError(t, err)
		assert.Equal(t, "explicit", conn.published.Header.Get("X-Correlation-Id"))
	})

	t.Run("publish error", func(t *testing.T) {
		client := NewClient(WithNATSConn(&mockConn{t: t, err: errors.New("nats down")}))

		err := client.Publish(context.Background(), "test", &events.Event{Version: events.Version})
		assert.Error(t, err)
	})
}

func TestClient_Subscribe(t *testing.T) {
	t.Run("nil handler", func(t *testing.T) {
		client := NewClient(WithNATSConn(&mockConn{t: t}))

		_, err := client.Subscribe("test", nil)
		assert.ErrorIs(t, err, ErrNilHandler)
	})

	t.Run("handler context carries message correlation", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(WithNATSConn(conn))

		_, err := client.Subscribe("test", func(ctx context.Context, event *events.Event) error {
			id, ok := correlation.ID(ctx)
			assert.True(t, ok)
			assert.Equal(t, "msg-1", id)
			assert.Equal(t, events.CorrelatorEventNotify, event.Action)

			return nil
		})
		assert.NoError(t, err)

		payload, err := json.Marshal(&events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventNotify,
		})
		assert.NoError(t, err)

		conn.cb(&nats.Msg{
			Subject: "events.test",
			Data:    payload,
			Header:  nats.Header{"X-Correlation-Id": []string{"msg-1"}},
		})
	})

	t.Run("body headers fallback", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(WithNATSConn(conn))

		var got string

		_, err := client.Subscribe("test", func(ctx context.Context, _ *events.Event) error {
			got, _ = correlation.ID(ctx)

			return nil
		})
		assert.NoError(t, err)

		payload, err := json.Marshal(&events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventNotify,
			Headers: map[string][]string{"X-Correlation-Id": {"body-1"}},
		})
		assert.NoError(t, err)

		// no message headers, id only inside the event body
		conn.cb(&nats.Msg{Subject: "events.test", Data: payload})

		assert.Equal(t, "body-1", got)
	})

	t.Run("body headers fallback with custom header name", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(
			WithNATSConn(conn),
			WithExtractor(correlation.NewExtractor(correlation.NewConfig(
				correlation.WithHeaderName("X-Request-Id"),
			))),
		)

		var got string

		_, err := client.Subscribe("test", func(ctx context.Context, _ *events.Event) error {
			got, _ = correlation.ID(ctx)

			return nil
		})
		assert.NoError(t, err)

		payload, err := json.Marshal(&events.Event{
			Version: events.Version,
			Action:  events.CorrelatorEventNotify,
			Headers: map[string][]string{"X-Request-Id": {"body-2"}},
		})
		assert.NoError(t, err)

		conn.cb(&nats.Msg{Subject: "events.test", Data: payload})

		assert.Equal(t, "body-2", got)
	})

	t.Run("uncorrelated message generates an id", func(t *testing.T) {
		conn := &mockConn{t: t}
		client := NewClient(WithNATSConn(conn))

		var got string

		_, err := client.Subscribe("test", func(ctx context.Context, _ *events.Event) error {
			got, _ = correlation.ID(ctx)

			return nil
		})
		assert.NoError(t, err)

		conn.cb(&nats.Msg{Subject: "events.test", Data: []byte(`{"version":"v1alpha1"}`)})

		assert.NotEmpty(t, got)
	})
}
