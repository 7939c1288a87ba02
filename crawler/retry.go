package crawler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// RetryPolicy configures retry behavior for failed fetches.
type RetryPolicy struct {
	MaxRetries int           // Maximum number of retries (2 = 3 total attempts)
	BaseDelay  time.Duration // Initial backoff delay (1s)
	MaxDelay   time.Duration // Maximum backoff cap (30s)
}

// DefaultRetryPolicy returns a RetryPolicy with sensible defaults:
// 2 retries (3 attempts), 1s base delay, 30s max delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// attemptResult is one HTTP attempt's outcome, enough information for
// shouldRetryAttempt to classify it without reaching back into the
// response body.
type attemptResult struct {
	resp       *http.Response
	header     http.Header
	body       []byte
	err        error
	statusCode int // 0 if the request itself failed
}

// withRetry runs attempt with exponential backoff, retrying transient
// failures (network errors, 429, 5xx) but not permanent ones (4xx except
// 429). It returns the last attemptResult, win or lose; if ctx is done
// while waiting to retry, it returns a result carrying ctx.Err() instead.
func withRetry(ctx context.Context, policy RetryPolicy, attempt func(ctx context.Context) attemptResult) attemptResult {
	backoff := policy.BaseDelay
	var last attemptResult

	for try := 0; try <= policy.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return attemptResult{err: ctx.Err()}
			case <-time.After(backoff):
				backoff = min(backoff*2, policy.MaxDelay)
			}
		}

		last = attempt(ctx)
		if !shouldRetryAttempt(last) {
			return last
		}
	}

	return last
}

// shouldRetryAttempt reports whether a failed attempt is worth retrying.
func shouldRetryAttempt(a attemptResult) bool {
	if a.statusCode == 429 || a.statusCode >= 500 {
		return true
	}
	if a.statusCode >= 400 {
		return false
	}
	return isRetryableError(a.err)
}

// isRetryableError checks if an error type is retryable.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
