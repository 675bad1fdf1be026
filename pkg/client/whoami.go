package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/metal-toolbox/correlator/pkg/api/v1alpha1"
)

// Whoami returns the correlation context the server observed for this call
func (c *Client) Whoami(ctx context.Context) (*v1alpha1.WhoamiResponse, error) {
	u := fmt.Sprintf("%s/api/%s/whoami", c.url, correlatorAPIVersionAlpha)

	req, err := c.newCorrelatorRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	out := &v1alpha1.WhoamiResponse{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}

	return out, nil
}
