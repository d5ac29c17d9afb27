package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/renatogalera/worldgen/pkg/ai"
)

type GoogleClient struct {
	ai.BaseAIClient
	client *genai.Client
	model  string
}

func NewGoogleClient(ctx context.Context, provider, apiKey, model, baseURL string) (*GoogleClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(baseURL) != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("error creating google client: %w", err)
	}
	return &GoogleClient{
		BaseAIClient: ai.BaseAIClient{Provider: provider},
		client:       client,
		model:        model,
	}, nil
}

func generateConfig(req ai.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	return cfg
}

func (gc *GoogleClient) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	resp, err := gc.client.Models.GenerateContent(ctx, req.ModelOr(gc.model), genai.Text(req.Input), generateConfig(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no response from Google")
	}
	return text, nil
}

func (gc *GoogleClient) StreamText(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	var out strings.Builder
	for resp, err := range gc.client.Models.GenerateContentStream(ctx, req.ModelOr(gc.model), genai.Text(req.Input), generateConfig(req)) {
		if err != nil {
			return out.String(), fmt.Errorf("google stream failed: %w", err)
		}
		if d := resp.Text(); d != "" {
			out.WriteString(d)
			onDelta(d)
		}
	}
	return out.String(), nil
}

var _ ai.StreamingAIClient = (*GoogleClient)(nil)
