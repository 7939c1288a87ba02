package crawler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mercatorcrawl/frontier/frontier"
)

// headTimeout bounds the HEAD probe fetchFn uses to cheaply reject
// non-HTML resources before paying for a full GET.
const headTimeout = 5 * time.Second

// Response is what a fetch worker has to show for one dispatched URL: the
// final status and headers, the response body, and (for HTML pages) the
// extracted title/body-text debug summary. A nil *Response means the
// fetch was disallowed by policy or failed outright.
type Response struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
	Title  string
	Text   string
}

// buildFetchFn composes the fetchFn the frontier drives: a policy gate,
// then a HEAD probe that rejects anything that isn't text/html or a
// redirect, then a GET with redirects disabled so the worker loop can see
// and re-enqueue the Location itself. Any transport, TLS, or HTTP error
// collapses to a nil Response rather than propagating — the worker loop
// simply counts that URL as checked and moves on.
func buildFetchFn(policy *frontier.PolicyCache, client *http.Client, retryPolicy RetryPolicy, limiter *GlobalThrottle, userAgent string) func(ctx context.Context, url string) *Response {
	return func(ctx context.Context, url string) *Response {
		if !policy.CanFetch(ctx, url) {
			return nil
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		if !probeIsHTML(ctx, client, retryPolicy, userAgent, url) {
			return nil
		}

		start := time.Now()
		resp := fetchWithRetry(ctx, client, retryPolicy, userAgent, url)
		if limiter != nil {
			limiter.ObserveRTT(time.Since(start))
		}
		return resp
	}
}

// probeIsHTML issues a short-timeout HEAD request and reports whether the
// response is text/html or a redirect status, per the fetchFn contract:
// anything else (images, PDFs, JSON APIs, ...) is rejected before a GET
// is ever attempted. Retried under retryPolicy exactly like the GET in
// fetchWithRetry, so a transient failure on the HEAD doesn't drop the URL
// on the first try while the GET gets the full retry budget.
func probeIsHTML(ctx context.Context, client *http.Client, retryPolicy RetryPolicy, userAgent, url string) bool {
	headCtx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	noRedirectClient := &http.Client{
		Transport:     client.Transport,
		Timeout:       client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error { return http.ErrUseLastResponse },
	}

	result := withRetry(headCtx, retryPolicy, func(ctx context.Context) attemptResult {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return attemptResult{err: err}
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := noRedirectClient.Do(req)
		if err != nil {
			return attemptResult{err: err}
		}
		_ = resp.Body.Close()

		return attemptResult{header: resp.Header, statusCode: resp.StatusCode}
	})

	if result.err != nil {
		return false
	}
	if isRedirectStatus(result.statusCode) {
		return true
	}
	return strings.Contains(strings.ToLower(result.header.Get("Content-Type")), "text/html")
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// fetchWithRetry performs the real GET, with redirects disabled (the
// worker loop handles the Location header itself) and retried per
// retryPolicy. A nil return means every attempt failed or was permanently
// rejected.
func fetchWithRetry(ctx context.Context, client *http.Client, retryPolicy RetryPolicy, userAgent, url string) *Response {
	noRedirectClient := &http.Client{
		Transport:     client.Transport,
		Timeout:       client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error { return http.ErrUseLastResponse },
	}

	result := withRetry(ctx, retryPolicy, func(ctx context.Context) attemptResult {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return attemptResult{err: err}
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := noRedirectClient.Do(req)
		if err != nil {
			return attemptResult{err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return attemptResult{err: err, statusCode: resp.StatusCode}
		}
		return attemptResult{header: resp.Header, body: body, statusCode: resp.StatusCode}
	})

	if result.err != nil && result.body == nil {
		return nil
	}
	if result.statusCode >= 400 {
		return nil
	}

	title, text := "N/A", "N/A"
	if strings.Contains(strings.ToLower(result.header.Get("Content-Type")), "text/html") {
		title, text = ExtractTitleAndText(result.body)
	}

	return &Response{
		URL:    url,
		Status: result.statusCode,
		Header: result.header,
		Body:   result.body,
		Title:  title,
		Text:   text,
	}
}
