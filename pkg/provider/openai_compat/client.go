package openai_compat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/renatogalera/worldgen/pkg/ai"
)

// Client is a reusable OpenAI-compatible client (OpenAI, DeepSeek, OpenRouter).
// It uses the official openai-go SDK and accepts a custom baseURL.
type Client struct {
	ai.BaseAIClient
	client openai.Client
	model  string
}

func NewCompatClient(provider, apiKey, model, baseURL string) *Client {
	var opts []option.RequestOption
	if strings.TrimSpace(apiKey) != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return &Client{
		BaseAIClient: ai.BaseAIClient{Provider: provider},
		client:       openai.NewClient(opts...),
		model:        model,
	}
}

func (c *Client) params(req ai.Request) openai.ChatCompletionNewParams {
	var msgs []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Input))
	return openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(req.ModelOr(c.model)),
	}
}

func (c *Client) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return "", fmt.Errorf("failed to get chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI-compatible provider")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// StreamText streams text deltas via onDelta and returns the final text.
func (c *Client) StreamText(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	defer stream.Close()
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 {
			if d := chunk.Choices[0].Delta.Content; d != "" {
				onDelta(d)
			}
		}
	}
	if err := stream.Err(); err != nil {
		if len(acc.Choices) > 0 {
			return acc.Choices[0].Message.Content, err
		}
		return "", err
	}
	if len(acc.Choices) == 0 {
		return "", errors.New("no response from OpenAI-compatible provider")
	}
	return acc.Choices[0].Message.Content, nil
}

var _ ai.StreamingAIClient = (*Client)(nil)
