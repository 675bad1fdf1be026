package v1alpha1

import "github.com/goccy/go-json"

const (
	// Version is the API version constant
	Version = "v1alpha1"

	// CorrelatorEventNotify is the action passed on generic notification events
	CorrelatorEventNotify = "NOTIFY"
	// CorrelatorEventTick is the action passed on scheduled timer events
	CorrelatorEventTick = "TICK"
	// CorrelatorEventRelay is the action passed on relayed demo events
	CorrelatorEventRelay = "RELAY"

	// CorrelatorNotificationsEventSubject is the subject name for notification events (minus the subject prefix)
	CorrelatorNotificationsEventSubject = "notifications"
	// CorrelatorTicksEventSubject is the subject name for timer tick events (minus the subject prefix)
	CorrelatorTicksEventSubject = "ticks"
)

// CorrelatorEventCorrelationIDHeader is the default message header carrying
// the correlation ID on published events.
const CorrelatorEventCorrelationIDHeader = "X-Correlation-Id"

// Event is an event notification from Correlator.
type Event struct {
	Version string `json:"version"`
	Action  string `json:"action"`
	ActorID string `json:"actor_id,omitempty"`

	// Payload is an opaque event body supplied by the publisher.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Headers are message headers attached to the published message. The
	// event bus adds the correlation ID and captured headers here unless
	// the publisher already set them.
	Headers map[string][]string `json:"headers,omitempty"`

	// TraceContext is a map of values used for OpenTelemetry context propagation.
	TraceContext map[string]string `json:"traceContext"`
}
