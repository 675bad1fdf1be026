package v1alpha1

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/pkg/correlation"
)

// RelayRequest asks the service to call a downstream URL with the current
// correlation context attached.
type RelayRequest struct {
	URL string `json:"url" binding:"required"`
}

// RelayResponse reports the downstream call's outcome.
type RelayResponse struct {
	CorrelationID string `json:"correlation_id"`
	Status        int    `json:"status"`
}

// postRelay issues an outbound GET through the correlation transport; the
// downstream request carries the same correlation ID as this request. A
// downstream failure is logged with correlation context and surfaced as a
// bad gateway, the correlation header stays on the error response.
func (r *Router) postRelay(c *gin.Context) {
	ctx := c.Request.Context()
	logger := r.logger()

	req := &RelayRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	target, err := url.Parse(req.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid relay url"})
		return
	}

	rctx, cancel := context.WithTimeout(ctx, relayTimeout)
	defer cancel()

	out, err := http.NewRequestWithContext(rctx, http.MethodGet, target.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid relay url"})
		return
	}

	resp, err := r.httpClient().Do(out)
	if err != nil {
		logger.Error(ctx, "relay call failed", zap.String("url", target.String()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "downstream call failed"})

		return
	}

	defer resp.Body.Close() //nolint:errcheck

	id, _ := correlation.ID(ctx)

	logger.Info(ctx, "relay complete", zap.String("url", target.String()), zap.Int("status", resp.StatusCode))

	c.JSON(http.StatusOK, &RelayResponse{
		CorrelationID: id,
		Status:        resp.StatusCode,
	})
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}

	return &http.Client{
		Transport: correlation.NewTransport(nil, r.extractor(), correlation.WithTransportLogger(r.logger())),
		Timeout:   relayTimeout,
	}
}
