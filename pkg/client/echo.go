package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/metal-toolbox/correlator/pkg/api/v1alpha1"
)

// Echo sends a message through the echo endpoint
func (c *Client) Echo(ctx context.Context, echo *v1alpha1.EchoRequest) (*v1alpha1.EchoResponse, error) {
	if echo == nil {
		return nil, ErrNilEchoRequest
	}

	u := fmt.Sprintf("%s/api/%s/echo", c.url, correlatorAPIVersionAlpha)

	body, err := marshalBody(echo)
	if err != nil {
		return nil, err
	}

	req, err := c.newCorrelatorRequest(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}

	out := &v1alpha1.EchoResponse{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}

	return out, nil
}

// PublishEvent publishes a demo event through the API
func (c *Client) PublishEvent(ctx context.Context, publish *v1alpha1.PublishRequest) (*v1alpha1.PublishResponse, error) {
	if publish == nil {
		return nil, ErrNilPublishRequest
	}

	u := fmt.Sprintf("%s/api/%s/events", c.url, correlatorAPIVersionAlpha)

	body, err := marshalBody(publish)
	if err != nil {
		return nil, err
	}

	req, err := c.newCorrelatorRequest(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}

	out := &v1alpha1.PublishResponse{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}

	return out, nil
}
