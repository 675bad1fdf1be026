// Package v1alpha1 provides the demo request surface of the correlator
// service. Every route runs behind the correlation middleware and exists to
// exercise a propagation path: synchronous logging, concurrent fan-out,
// outbound HTTP relay, and event publication.
package v1alpha1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/internal/eventbus"
	"github.com/metal-toolbox/correlator/pkg/correlation"
)

const (
	// Version is the API version constant
	Version = "v1alpha1"

	relayTimeout = 10 * time.Second
)

// Router is the API router
type Router struct {
	EventBus  *eventbus.Client
	Extractor *correlation.Extractor
	Logger    *correlation.Logger

	// HTTPClient issues the relay route's outbound calls; its transport
	// carries the correlation headers forward.
	HTTPClient *http.Client
}

// Routes sets up the demo routes
func (r *Router) Routes(rg *gin.RouterGroup) {
	rg.GET("/whoami", r.getWhoami)
	rg.POST("/echo", r.postEcho)
	rg.GET("/fanout", r.getFanout)
	rg.POST("/relay", r.postRelay)
	rg.POST("/events", r.publishEvent)
}

func (r *Router) logger() *correlation.Logger {
	if r.Logger == nil {
		return correlation.NewLogger(zap.NewNop())
	}

	return r.Logger
}

func (r *Router) extractor() *correlation.Extractor {
	if r.Extractor == nil {
		return correlation.NewExtractor(correlation.NewConfig())
	}

	return r.Extractor
}
