package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicSDK "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/renatogalera/worldgen/pkg/ai"
)

const maxTokens = 2048

type AnthropicClient struct {
	ai.BaseAIClient
	client anthropicSDK.Client
	model  string
}

func NewAnthropicClient(provider, apiKey, model, baseURL string) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return &AnthropicClient{
		BaseAIClient: ai.BaseAIClient{Provider: provider},
		client:       anthropicSDK.NewClient(opts...),
		model:        model,
	}, nil
}

func (ac *AnthropicClient) params(req ai.Request) anthropicSDK.MessageNewParams {
	p := anthropicSDK.MessageNewParams{
		Model:     anthropicSDK.Model(req.ModelOr(ac.model)),
		MaxTokens: maxTokens,
		Messages: []anthropicSDK.MessageParam{
			anthropicSDK.NewUserMessage(anthropicSDK.NewTextBlock(req.Input)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		p.System = []anthropicSDK.TextBlockParam{{Text: req.System}}
	}
	return p
}

func (ac *AnthropicClient) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	resp, err := ac.client.Messages.New(ctx, ac.params(req))
	if err != nil {
		return "", fmt.Errorf("failed to get message from Anthropic: %w", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	msg := strings.TrimSpace(sb.String())
	if msg == "" {
		return "", errors.New("empty response from Anthropic")
	}
	return msg, nil
}

func (ac *AnthropicClient) StreamText(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	stream := ac.client.Messages.NewStreaming(ctx, ac.params(req))
	defer stream.Close()
	var out strings.Builder
	for stream.Next() {
		event := stream.Current()
		ev, ok := event.AsAny().(anthropicSDK.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if d, ok := ev.Delta.AsAny().(anthropicSDK.TextDelta); ok && d.Text != "" {
			out.WriteString(d.Text)
			onDelta(d.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return out.String(), fmt.Errorf("anthropic stream failed: %w", err)
	}
	return out.String(), nil
}

var _ ai.StreamingAIClient = (*AnthropicClient)(nil)
