package v1alpha1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metal-toolbox/correlator/pkg/correlation"
)

// WhoamiResponse reports the correlation context of the calling request.
type WhoamiResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Source        string            `json:"source"`
	Headers       map[string]string `json:"headers,omitempty"`
	Created       time.Time         `json:"created"`
}

// getWhoami echoes the request's correlation context back to the caller
func (r *Router) getWhoami(c *gin.Context) {
	ctx := c.Request.Context()

	cc, ok := correlation.FromContext(ctx)
	if !ok {
		// auto-generate disabled and no inbound header
		c.JSON(http.StatusOK, &WhoamiResponse{})
		return
	}

	r.logger().Debug(ctx, "whoami")

	c.JSON(http.StatusOK, &WhoamiResponse{
		CorrelationID: cc.ID,
		Source:        cc.Source,
		Headers:       correlation.HeaderValues(ctx),
		Created:       cc.Created,
	})
}
