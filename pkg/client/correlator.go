// Package client provides a client for the correlator API. The default
// transport carries the caller's correlation context onto every request and
// is wrapped in otel instrumentation, so a service using this client gets
// end-to-end correlation for free.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/metal-toolbox/correlator/pkg/correlation"
)

const (
	correlatorTimeout         = 10 * time.Second
	correlatorAPIVersionAlpha = "v1alpha1"
)

// HTTPDoer implements the standard http.Client interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a correlator API client
type Client struct {
	url        string
	logger     *zap.Logger
	httpClient HTTPDoer
	extractor  *correlation.Extractor
}

// URL returns the correlator url
func (c *Client) URL() string {
	return c.url
}

// Option is a functional configuration option
type Option func(r *Client)

// WithURL sets the correlator API URL
func WithURL(u string) Option {
	return func(r *Client) {
		r.url = u
	}
}

// WithLogger sets logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Client) {
		r.logger = l
	}
}

// WithHTTPClient overrides the default http client
func WithHTTPClient(c HTTPDoer) Option {
	return func(r *Client) {
		r.httpClient = c
	}
}

// WithCorrelationConfig overrides the correlation config used by the
// default transport
func WithCorrelationConfig(cfg correlation.Config) Option {
	return func(r *Client) {
		r.extractor = correlation.NewExtractor(cfg)
	}
}

// NewClient returns a new correlator client
func NewClient(opts ...Option) (*Client, error) {
	client := Client{
		logger:    zap.NewNop(),
		extractor: correlation.NewExtractor(correlation.NewConfig()),
	}

	for _, opt := range opts {
		opt(&client)
	}

	if client.url == "" {
		return nil, ErrMissingURL
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Timeout: correlatorTimeout,
			Transport: correlation.NewTransport(
				otelhttp.NewTransport(http.DefaultTransport),
				client.extractor,
				correlation.WithTransportLogger(correlation.NewLogger(client.logger)),
			),
		}
	}

	return &client, nil
}

func (c *Client) newCorrelatorRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	c.logger.Debug("parsing url", zap.String("url", u))

	queryURL, err := url.Parse(u)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("creating new http request", zap.String("url", queryURL.String()), zap.String("method", method))

	req, err := http.NewRequestWithContext(ctx, method, queryURL.String(), body)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusMultipleChoices {
		return ErrRequestNonSuccess
	}

	if out == nil {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(payload, out)
}

func marshalBody(in interface{}) (io.Reader, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(payload), nil
}
