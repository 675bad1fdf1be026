package v1alpha1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/pkg/correlation"
	events "github.com/metal-toolbox/correlator/pkg/events/v1alpha1"
)

// PublishRequest is a request to publish a demo event on the bus.
type PublishRequest struct {
	Subject string          `json:"subject" binding:"required"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// PublishResponse reports the correlation ID the event was stamped with.
type PublishResponse struct {
	CorrelationID string `json:"correlation_id"`
	Subject       string `json:"subject"`
}

// publishEvent publishes an event on the bus; the event bus stamps the
// message with this request's correlation ID and captured headers, so a
// subscriber picks up the same chain.
func (r *Router) publishEvent(c *gin.Context) {
	ctx := c.Request.Context()
	logger := r.logger()

	if r.EventBus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus not configured"})
		return
	}

	req := &PublishRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	action := req.Action
	if action == "" {
		action = events.CorrelatorEventNotify
	}

	event := &events.Event{
		Version: events.Version,
		Action:  action,
		Payload: req.Payload,
	}

	if err := r.EventBus.Publish(ctx, req.Subject, event); err != nil {
		logger.Error(ctx, "failed to publish event", zap.String("subject", req.Subject), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish event"})

		return
	}

	id, _ := correlation.ID(ctx)

	c.JSON(http.StatusAccepted, &PublishResponse{
		CorrelationID: id,
		Subject:       req.Subject,
	})
}
