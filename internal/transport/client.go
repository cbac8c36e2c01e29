// Package transport is the request layer in front of the remote document
// service: JSON POST calls with bearer authentication, retried with exponential
// backoff on rate limiting and transport failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client issues authenticated calls against `<baseURL>/api/<endpoint>`.
type Client struct {
	http    *http.Client
	timeout time.Duration
	auth    Authenticator
	apiKey  string
	baseURL string
	policy  Policy
	sleep   Sleeper
	logger  *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-attempt HTTP timeout. It applies to the client
// given with WithHTTPClient too, in any option order, without modifying it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAuthenticator replaces the default bearer authentication.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithSleeper replaces the backoff sleeper (tests record delays with it).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger sets the logger used for retry messages. By default retries are
// logged through the logger of the call's context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a new transport client for the given service root.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    &BearerAuth{},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		policy:  DefaultPolicy(),
		sleep:   SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// Timeout returns the per-attempt HTTP timeout in effect.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call POSTs payload as JSON to the endpoint and decodes a successful response
// body into out (skipped when out is nil).
func (c *Client) Call(ctx context.Context, endpoint string, payload, out any) error {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapParse("json", "", err)
	}

	url := c.baseURL + constants.APIPathPrefix + endpoint
	res, err := Retry(ctx, c.policy, c.sleep, endpoint, c.logger, func(ctx context.Context) Attempt {
		return c.attempt(ctx, url, endpoint, body)
	})
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(res.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return errors.WrapParse("json", "", err)
	}
	return nil
}

// attempt performs a single round trip and classifies it.
func (c *Client) attempt(ctx context.Context, url, endpoint string, body []byte) Attempt {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Attempt{Kind: AttemptPermanent, Err: errors.WrapResource("create", "request", "POST "+url, err)}
	}

	c.auth.Apply(req, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Attempt{Kind: AttemptRetryable, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return Attempt{Kind: AttemptRetryable, Err: errors.WrapIO("read", "response body", err)}
		}
		return Attempt{Kind: AttemptSuccess, StatusCode: resp.StatusCode, Body: data}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Attempt{Kind: AttemptRetryable, StatusCode: resp.StatusCode}
	default:
		// The status decides; a body cut short only shortens the message.
		data, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxErrorBodyBytes))
		return Attempt{
			Kind:       AttemptPermanent,
			StatusCode: resp.StatusCode,
			Err:        errors.NewAPIError(endpoint, resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}
}
