package llm

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// backoff schedule: base doubles per attempt, capped, with jitter so
// concurrent tasks don't hammer the provider in lockstep.
const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// invokeWithRetry calls the Messages API, retrying transient failures up
// to the configured budget. Fatal errors and cancellation return
// immediately.
func (c *Client) invokeWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			log.Printf("[llm] transient provider error, retrying in %s (attempt %d/%d): %v",
				delay.Round(time.Millisecond), attempt, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.inner.Messages.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		lastErr = classify(err)
		var perr *ProviderError
		if !errors.As(lastErr, &perr) || !perr.Transient {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// backoffDelay returns the capped exponential delay with up to 25% jitter.
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}
