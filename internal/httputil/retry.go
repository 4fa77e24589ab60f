// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the generation backends.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// RetryNotify is called before each backoff wait with the retry number
// (starting at 1), the status that triggered it, and the wait.
type RetryNotify func(retry, status int, wait time.Duration)

// Retryable reports whether a status code means "try again later": 429 Too
// Many Requests, or 503 Service Unavailable which hosted inference APIs
// return while a model is still loading.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries retryable responses with
// exponential backoff. The delay starts at RetryBaseDelay and doubles each
// attempt.
//
// When maxRetries is 0 the default (5) is used. Request bodies are replayed
// through req.GetBody, which http.NewRequest sets for in-memory bodies. On
// each retry the response body is drained and closed before sleeping. If the
// context is cancelled during a backoff wait the function returns ctx.Err().
// After exhausting retries the last response is returned so the caller can
// inspect it.
//
// Only use this where repeating the request is harmless, such as readiness
// probes; generation calls are never retried.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	return DoWithRetryNotify(ctx, client, req, maxRetries, nil)
}

// DoWithRetryNotify is DoWithRetry with a callback run before every wait.
// A nil notify is allowed.
func DoWithRetryNotify(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, notify RetryNotify) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replaying request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if notify != nil {
			notify(attempt+1, resp.StatusCode, backoff)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
