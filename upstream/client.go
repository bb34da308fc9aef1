// Package upstream implements HTTP clients for the external collaborators:
// the transaction indexer, the trading-activity analyzer, the label
// generator, and the wallet ranker. Each client satisfies the corresponding
// interface in the wallet package. Requests share a rate limiter so bulk
// operations cannot trip upstream quotas.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/walletsync/errors"
)

const defaultTimeout = 30 * time.Second

// Client is the shared rate-limited HTTP JSON transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit caps outgoing requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a transport for baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "upstream", "NewClient", "empty base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.WrapInvalid(err, "upstream", "NewClient", "parse base url")
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("component", "upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// postJSON issues a POST with a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.WrapTransient(err, "upstream", "doJSON", "rate limit wait")
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapInvalid(err, "upstream", "doJSON", "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.WrapInvalid(err, "upstream", "doJSON", "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrUpstreamFailed, err),
			"upstream", "doJSON", method+" "+path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.WrapTransient(
			fmt.Errorf("%w: %s returned %d: %s", errors.ErrUpstreamFailed, path, resp.StatusCode, snippet),
			"upstream", "doJSON", method+" "+path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrInvalidData, err),
			"upstream", "doJSON", "decode response")
	}
	return nil
}
