package provider

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"
)

// fakeTransport fails a fixed number of times before succeeding.
type fakeTransport struct {
	failures int
	err      error
	calls    int
	response string
}

func (f *fakeTransport) Complete(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return f.response, nil
}

// fakeConn satisfies just enough of net.Conn for the probe.
type fakeConn struct{ net.Conn }

func (fakeConn) Close() error { return nil }

func newTestClient(transport Transport, policy RetryPolicy) (*Client, *[]time.Duration) {
	c := NewClientWithTransport(transport, ClientConfig{Retry: policy})
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return fakeConn{}, nil
	}
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return c, &delays
}

func TestSendSucceedsFirstAttempt(t *testing.T) {
	transport := &fakeTransport{response: "hello"}
	c, delays := newTestClient(transport, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second})

	got, err := c.Send(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no backoff sleeps, got %v", *delays)
	}
}

func TestSendRetriesConnectionErrors(t *testing.T) {
	transport := &fakeTransport{failures: 2, err: syscall.ECONNRESET, response: "ok"}
	c, delays := newTestClient(transport, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second})

	got, err := c.Send(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected %q, got %q", "ok", got)
	}
	if transport.calls != 3 {
		t.Errorf("expected 3 transport calls, got %d", transport.calls)
	}

	// Delays must strictly double from the initial delay.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(*delays))
	}
	for i, d := range *delays {
		if d != want[i] {
			t.Errorf("delay %d: expected %s, got %s", i, want[i], d)
		}
	}
}

func TestSendExhaustsRetries(t *testing.T) {
	transport := &fakeTransport{failures: 5, err: syscall.ECONNREFUSED}
	c, _ := newTestClient(transport, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second})

	_, err := c.Send(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if transport.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", transport.calls)
	}
}

func TestSendDoesNotRetryProtocolErrors(t *testing.T) {
	transport := &fakeTransport{failures: 5, err: errors.New("invalid request body")}
	c, delays := newTestClient(transport, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second})

	_, err := c.Send(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if transport.calls != 1 {
		t.Errorf("expected a single attempt, got %d", transport.calls)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no sleeps for protocol errors, got %v", *delays)
	}
}

func TestSendProbeFailureSkipsNetworkCall(t *testing.T) {
	transport := &fakeTransport{response: "never"}
	c, _ := newTestClient(transport, RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond})
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, syscall.ECONNREFUSED
	}

	_, err := c.Send(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if transport.calls != 0 {
		t.Errorf("probe failure must not consume network attempts, transport saw %d calls", transport.calls)
	}
}

func TestSendCancelledDuringBackoff(t *testing.T) {
	transport := &fakeTransport{failures: 5, err: syscall.ECONNRESET}
	c := NewClientWithTransport(transport, ClientConfig{Retry: RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second}})
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return fakeConn{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Send(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSendEmptyMessages(t *testing.T) {
	c, _ := newTestClient(&fakeTransport{}, DefaultRetryPolicy())
	_, err := c.Send(context.Background(), nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol for empty conversation, got %v", err)
	}
}

func TestClassifyConnectionReset(t *testing.T) {
	err := classify(errors.New("read tcp 127.0.0.1:443: connection reset by peer"))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected reset message to classify as unreachable, got %v", err)
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 50)
	tr.Add(200, 25)

	in, out := tr.Total()
	if in != 300 || out != 75 {
		t.Errorf("expected 300/75, got %d/%d", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", tr.Calls())
	}

	tr.Reset()
	in, out = tr.Total()
	if in != 0 || out != 0 || tr.Calls() != 0 {
		t.Error("reset did not clear tracker")
	}
}
