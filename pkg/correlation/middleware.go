package correlation

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextKey is the key the correlation ID is stored under in the gin
// context, for handlers that want it without going through the request
// context.
const ContextKey = "correlationid"

// Middleware returns a gin handler that establishes the correlation
// context for every request. It runs exactly once per request: the ID is
// extracted from the inbound headers (or generated, per config) and stored
// on the request context before any handler runs, and the response header
// is written up front so error responses carry it too. When the wrapped
// handlers record errors they are logged with full correlation context and
// left on the gin context for the framework's normal error path.
func Middleware(e *Extractor, logger *Logger) gin.HandlerFunc {
	if logger == nil {
		logger = NewLogger(nil)
	}

	cfg := e.Config()

	return func(c *gin.Context) {
		src := HTTPSource{Header: c.Request.Header}

		ctx, id := src.Correlate(c.Request.Context(), e)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ContextKey, id)

		if id != "" && cfg.AddToResponse() {
			if c.Writer.Header().Get(cfg.HeaderName()) == "" {
				c.Writer.Header().Set(cfg.HeaderName(), id)
			}
		}

		if cfg.AddAdditionalToResponse() {
			for name, value := range HeaderValues(ctx) {
				if c.Writer.Header().Get(name) == "" {
					c.Writer.Header().Set(name, value)
				}
			}
		}

		// A panicking handler skips everything after c.Next, so log it
		// with correlation context here and re-panic for the recovery
		// middleware installed above us.
		defer func() {
			if p := recover(); p != nil {
				logger.Error(ctx, "request panicked",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", p),
				)

				panic(p)
			}
		}()

		c.Next()

		for _, ginErr := range c.Errors {
			logger.Error(ctx, "request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(ginErr.Err),
			)
		}

		if cfg.LogExecution() {
			logger.Debug(ctx, "handled request",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
			)
		}
	}
}
