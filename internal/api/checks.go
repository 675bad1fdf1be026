package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// livenessCheck ensures that the server is up and responding
func (s *Server) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
	})
}

// readinessCheck ensures that the server is up and that we are able to
// process requests. When a downstream relay target is configured it is
// pinged as well.
func (s *Server) readinessCheck(c *gin.Context) {
	if s.Conf.DownstreamURL != "" {
		if err := urlPingContext(c.Request.Context(), s.Conf.DownstreamURL); err != nil {
			s.Conf.Logger.Error("readiness check downstream ping failed", zap.String("url", s.Conf.DownstreamURL), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "DOWN",
			})

			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
	})
}

func urlPingContext(ctx context.Context, url string) error {
	const timeout = 5 * time.Second

	client := &http.Client{
		Timeout: timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("bad response: " + resp.Status) //nolint:err113
	}

	return nil
}
