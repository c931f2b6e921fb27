package provider

import (
	"context"
	"fmt"
	"log"
)

// Send submits the conversation to the provider, retrying transient
// failures with exponential backoff. Before each attempt the endpoint is
// probed for reachability; an unreachable endpoint consumes a retry
// attempt without making a network call. Non-transient errors propagate
// immediately. When every attempt fails, the returned error wraps
// ErrUnreachable and carries the last underlying cause.
func (c *Client) Send(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", wrap(ErrProtocol, fmt.Errorf("no messages to send"))
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			// Delay before attempt k+1 is initial * 2^(k-1): 1s, 2s, 4s, ...
			delay := c.retry.InitialDelay << (attempt - 2)
			log.Printf("[provider] attempt %d/%d failed, backing off %s: %v",
				attempt-1, c.retry.MaxAttempts, delay, lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		if !c.reachable(ctx) {
			lastErr = wrap(ErrUnreachable, fmt.Errorf("endpoint %s is not accepting connections", c.endpoint))
			continue
		}

		text, err := c.transport.Complete(ctx, messages)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		classified := classify(err)
		if !retryable(classified) {
			return "", classified
		}
		lastErr = classified
	}

	return "", fmt.Errorf("%w: all %d attempts failed, last error: %v",
		ErrUnreachable, c.retry.MaxAttempts, lastErr)
}

// reachable probes the provider endpoint with a short-lived TCP dial.
func (c *Client) reachable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	conn, err := c.dial(probeCtx, "tcp", c.endpoint)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
