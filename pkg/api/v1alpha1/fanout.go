package v1alpha1

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metal-toolbox/correlator/pkg/correlation"
)

const (
	defaultFanoutBranches = 3
	maxFanoutBranches     = 16
)

// FanoutResponse reports the correlation ID observed by each concurrent
// branch; all of them match the parent request's ID.
type FanoutResponse struct {
	CorrelationID string   `json:"correlation_id"`
	Branches      []string `json:"branches"`
}

// getFanout spawns N concurrently-awaited branches off the request context.
// Each branch logs with the inherited correlation context and reports the
// ID it observed.
func (r *Router) getFanout(c *gin.Context) {
	ctx := c.Request.Context()
	logger := r.logger()

	branches := defaultFanoutBranches
	if v := c.Query("branches"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxFanoutBranches {
			c.JSON(http.StatusBadRequest, gin.H{"error": "branches must be between 1 and " + strconv.Itoa(maxFanoutBranches)})
			return
		}

		branches = n
	}

	var (
		mu   sync.Mutex
		seen = make([]string, 0, branches)
	)

	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < branches; i++ {
		branch := i

		group.Go(func() error {
			return r.runBranch(gctx, branch, func(id string) {
				mu.Lock()
				defer mu.Unlock()

				seen = append(seen, id)
			})
		})
	}

	if err := group.Wait(); err != nil {
		_ = c.Error(err) //nolint:errcheck
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	id, _ := correlation.ID(ctx)

	logger.Info(ctx, "fanout complete", zap.Int("branches", branches))

	c.JSON(http.StatusOK, &FanoutResponse{
		CorrelationID: id,
		Branches:      seen,
	})
}

func (r *Router) runBranch(ctx context.Context, branch int, record func(id string)) error {
	id, _ := correlation.ID(ctx)

	r.logger().Debug(ctx, "branch running", zap.Int("branch", branch))

	record(id)

	return nil
}
