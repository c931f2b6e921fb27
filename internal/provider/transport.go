package provider

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// anthropicTransport completes conversations via the Anthropic Messages
// API and records token usage on its tracker.
type anthropicTransport struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tracker   *TokenTracker
}

func (t *anthropicTransport) Complete(ctx context.Context, messages []Message) (string, error) {
	var system []anthropic.TextBlockParam
	var params []anthropic.MessageParam

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     t.model,
		MaxTokens: t.maxTokens,
		System:    system,
		Messages:  params,
	})
	if err != nil {
		return "", err
	}

	t.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	return text.String(), nil
}
