package provider

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrUnreachable indicates the provider endpoint could not be reached,
// either because the reachability probe failed or because every retry
// attempt hit a connection-level error.
var ErrUnreachable = errors.New("provider unreachable")

// ErrRateLimited indicates the provider rejected the call due to rate
// limiting. Rate limits are treated as transient and retried.
var ErrRateLimited = errors.New("provider rate limited")

// ErrProtocol indicates a non-transient provider error (malformed request,
// authentication failure, and the like). Never retried.
var ErrProtocol = errors.New("provider protocol error")

// classify maps an underlying transport error onto the client's error
// taxonomy. The returned error wraps both the sentinel and the cause.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return wrap(ErrRateLimited, err)
		case apierr.StatusCode >= 500:
			// Server-side failures, including overloaded (529).
			return wrap(ErrUnreachable, err)
		default:
			return wrap(ErrProtocol, err)
		}
	}

	if isConnectionError(err) {
		return wrap(ErrUnreachable, err)
	}

	return wrap(ErrProtocol, err)
}

// retryable reports whether a classified error is worth another attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrRateLimited)
}

// isConnectionError reports whether err looks like a transient
// connectivity failure: timeouts, refused or reset connections, DNS
// trouble.
func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Some transports flatten the syscall error into the message.
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe")
}

type wrappedError struct {
	sentinel error
	cause    error
}

func wrap(sentinel, cause error) error {
	return &wrappedError{sentinel: sentinel, cause: cause}
}

func (e *wrappedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *wrappedError) Is(target error) bool {
	return errors.Is(e.sentinel, target)
}

func (e *wrappedError) Unwrap() error {
	return e.cause
}
