// Package provider wraps the external text-generation service behind a
// resilient client: reachability probing, bounded exponential-backoff
// retries, and token usage tracking.
package provider

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Message roles understood by the client. System messages become the
// provider's system instruction; the rest form the conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a provider conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transport submits a conversation to the provider and returns the
// model's text. Implementations report usage to the given tracker.
type Transport interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// RetryPolicy bounds the client's retry loop.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt; each further
	// delay doubles.
	InitialDelay time.Duration
}

// DefaultRetryPolicy matches the service's historical behavior: three
// attempts spaced 1s, 2s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second}
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the model to use (e.g. anthropic.ModelClaudeSonnet4_20250514).
	Model anthropic.Model
	// APIKey is the provider API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// MaxTokens caps the response length per call.
	MaxTokens int64
	// UseAWSBedrock routes calls through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// Endpoint is the host:port probed for reachability before each
	// attempt. Defaults to the public API endpoint.
	Endpoint string
	// ProbeTimeout bounds the reachability probe. Defaults to 5s.
	ProbeTimeout time.Duration
	// Retry bounds the retry loop. Zero value means DefaultRetryPolicy.
	Retry RetryPolicy
}

// Client is a resilient wrapper around a provider transport. Before each
// attempt it probes endpoint reachability; transient failures are retried
// with exponential backoff, everything else propagates immediately.
type Client struct {
	transport    Transport
	tracker      *TokenTracker
	retry        RetryPolicy
	endpoint     string
	probeTimeout time.Duration

	// dial and sleep are injectable for tests.
	dial  func(ctx context.Context, network, addr string) (net.Conn, error)
	sleep func(ctx context.Context, d time.Duration) error
}

const defaultEndpoint = "api.anthropic.com:443"

// NewClient creates a Client backed by the Anthropic API (or Bedrock).
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	tracker := NewTokenTracker()
	inner := anthropic.NewClient(opts...)
	transport := &anthropicTransport{
		client:    &inner,
		model:     model,
		maxTokens: maxTokens,
		tracker:   tracker,
	}

	return newClient(transport, tracker, cfg), nil
}

// NewClientWithTransport creates a Client over a caller-supplied
// transport. Used by tests and by callers that bring their own provider.
func NewClientWithTransport(transport Transport, cfg ClientConfig) *Client {
	return newClient(transport, NewTokenTracker(), cfg)
}

func newClient(transport Transport, tracker *TokenTracker, cfg ClientConfig) *Client {
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = DefaultRetryPolicy().InitialDelay
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	var dialer net.Dialer
	return &Client{
		transport:    transport,
		tracker:      tracker,
		retry:        retry,
		endpoint:     endpoint,
		probeTimeout: probeTimeout,
		dial:         dialer.DialContext,
		sleep:        sleepContext,
	}
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// translateModelForBedrock converts standard model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
