package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// RetryPolicy bounds the retry behavior for transient failures. Each network
// call is wrapped in an explicit bounded-retry loop rather than relying on
// callers to re-drive failed requests.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries per request, including the
	// first one.
	MaxAttempts int

	// BaseDelay is the backoff delay before the first retry; subsequent
	// retries double it up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// MaxRateLimitWait caps how long a remote-reported rate-limit reset may
	// make us sleep. A reset further away than this fails the request.
	MaxRateLimitWait time.Duration
}

// DefaultRetryPolicy returns the retry policy used by both API clients.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      4,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		MaxRateLimitWait: 15 * time.Minute,
	}
}

// backoff returns the delay before the given retry. attempt is 1-based:
// backoff(1) is the delay after the first failed try.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		return p.MaxDelay
	}
	return delay
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRateLimited reports whether a response is a rate-limit signal. GitHub
// reports primary rate limits as 403 with X-RateLimit-Remaining: 0; Notion
// and GitHub secondary limits use 429.
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// rateLimitWait extracts the remote-reported wait duration from rate-limit
// headers. Returns false when the response carries no usable hint, in which
// case the caller falls back to exponential backoff.
func rateLimitWait(resp *http.Response, now time.Time) (time.Duration, bool) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, true
		}
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			wait := time.Unix(epoch, 0).Sub(now) + time.Second
			if wait < 0 {
				wait = 0
			}
			return wait, true
		}
	}
	return 0, false
}

// isRetryable reports whether a status code represents a transient failure
// worth retrying. Auth failures and other 4xx responses are not retried.
func isRetryable(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout || statusCode >= 500
}
