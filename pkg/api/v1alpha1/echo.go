package v1alpha1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/pkg/correlation"
)

// EchoRequest is a request to the echo endpoint
type EchoRequest struct {
	Message string `json:"message" binding:"required"`
}

// EchoResponse is the response from the echo endpoint
type EchoResponse struct {
	CorrelationID string `json:"correlation_id"`
	Message       string `json:"message"`
}

// postEcho runs a few sequential internal operations, each logging at debug
// level, then returns the message with the chain's correlation ID. Every
// record it emits carries the same ID as the response header.
func (r *Router) postEcho(c *gin.Context) {
	ctx := c.Request.Context()
	logger := r.logger()

	req := &EchoRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn(ctx, "invalid echo request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})

		return
	}

	for _, op := range []string{"validate", "transform", "assemble"} {
		logger.Debug(ctx, op, zap.String("message", req.Message))
	}

	id, _ := correlation.ID(ctx)

	logger.Info(ctx, "echo complete")

	c.JSON(http.StatusOK, &EchoResponse{
		CorrelationID: id,
		Message:       req.Message,
	})
}
