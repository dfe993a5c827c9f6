// Package transport provides the authenticated HTTP layer shared by the
// GitHub and Notion clients: header injection, JSON encoding, and bounded
// retry with backoff for transient failures and rate-limit waits.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/agentstation/starsync/pkg/errors"
	"github.com/agentstation/starsync/pkg/logging"
)

// DefaultHTTPTimeout bounds a single request attempt; retries and
// rate-limit waits run on top of it.
const DefaultHTTPTimeout = 30 * time.Second

// maxErrorBodyLen limits how much of a remote error body ends up in error
// messages and logs.
const maxErrorBodyLen = 512

// Client provides HTTP client functionality with authentication and retry.
type Client struct {
	service string
	http    *http.Client
	auth    Authenticator
	retry   RetryPolicy
	headers http.Header
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) { c.retry = policy }
}

// WithHeader adds a header applied to every request, such as an API
// version pin.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// New creates a transport client for the named service with the given
// authenticator. The service name tags errors and log lines.
func New(service string, auth Authenticator, opts ...Option) *Client {
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		retry:   DefaultRetryPolicy(),
		headers: make(http.Header),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

// DoJSON performs a request with an optional JSON body and decodes the JSON
// response into out (which may be nil to discard the response).
//
// Transient failures (network errors, 5xx) are retried with exponential
// backoff up to the policy's attempt bound. Rate-limit responses sleep
// until the remote-reported reset when one is present, backoff otherwise.
// Auth failures and other 4xx responses fail immediately.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) error {
	// Marshal once up front: an unencodable body fails identically on every
	// attempt, so it must not consume the retry budget.
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request body", err)
		}
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.send(ctx, method, url, payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt >= c.retry.MaxAttempts {
				return &errors.APIError{
					Service:  c.service,
					Endpoint: url,
					Message:  "request failed after " + strconv.Itoa(attempt) + " attempts",
					Err:      err,
				}
			}
			delay := c.retry.backoff(attempt)
			logging.Warn().
				Str("service", c.service).
				Str("url", url).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("Request failed, retrying")
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		closeBody(resp)
		if readErr != nil {
			return errors.WrapIO("read", "response body", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return errors.WrapParse("json", c.service+" response", err)
			}
			return nil
		}

		apiErr := &errors.APIError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Endpoint:   url,
			Message:    snippet(respBody),
		}

		switch {
		case isRateLimited(resp):
			wait, reported := rateLimitWait(resp, c.now())
			if !reported {
				wait = c.retry.backoff(attempt)
			}
			if wait > c.retry.MaxRateLimitWait {
				apiErr.RetryAfter = wait
				apiErr.Message = "rate limit reset too far away"
				return apiErr
			}
			if attempt >= c.retry.MaxAttempts {
				apiErr.RetryAfter = wait
				return apiErr
			}
			logging.Warn().
				Str("service", c.service).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Rate limited, waiting for window reset")
			if err := sleep(ctx, wait); err != nil {
				return err
			}

		case isRetryable(resp.StatusCode):
			if attempt >= c.retry.MaxAttempts {
				return apiErr
			}
			delay := c.retry.backoff(attempt)
			logging.Warn().
				Str("service", c.service).
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Transient error, retrying")
			if err := sleep(ctx, delay); err != nil {
				return err
			}

		default:
			// Non-retryable: auth failure or malformed request.
			return apiErr
		}
	}
}

// send performs a single request attempt with an optional pre-marshaled
// JSON payload.
func (c *Client) send(ctx context.Context, method, url string, payload []byte) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth.Apply(req)
	}

	return c.http.Do(req)
}

// closeBody drains and closes a response body so connections can be reused.
func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close response body")
	}
}

// snippet truncates a response body for error messages.
func snippet(body []byte) string {
	if len(body) > maxErrorBodyLen {
		return string(body[:maxErrorBodyLen]) + "..."
	}
	return string(body)
}
