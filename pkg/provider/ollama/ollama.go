package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/renatogalera/worldgen/pkg/ai"
)

type OllamaClient struct {
	ai.BaseAIClient
	client *api.Client
	model  string
}

func NewOllamaClient(provider, baseURL, model string) (*OllamaClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid Ollama baseURL: %q", baseURL)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	return &OllamaClient{
		BaseAIClient: ai.BaseAIClient{Provider: provider},
		client:       api.NewClient(u, http.DefaultClient),
		model:        model,
	}, nil
}

func (oc *OllamaClient) generate(ctx context.Context, req ai.Request, stream bool, fn func(string)) error {
	return oc.client.Generate(ctx, &api.GenerateRequest{
		Model:  req.ModelOr(oc.model),
		System: req.System,
		Prompt: req.Input,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		fn(resp.Response)
		return nil
	})
}

func (oc *OllamaClient) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	var response string
	if err := oc.generate(ctx, req, false, func(s string) { response = s }); err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return "", errors.New("empty response from Ollama")
	}
	return strings.TrimSpace(response), nil
}

func (oc *OllamaClient) StreamText(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	var out strings.Builder
	err := oc.generate(ctx, req, true, func(d string) {
		if d == "" {
			return
		}
		out.WriteString(d)
		onDelta(d)
	})
	if err != nil {
		return out.String(), fmt.Errorf("ollama stream failed: %w", err)
	}
	return out.String(), nil
}

var _ ai.StreamingAIClient = (*OllamaClient)(nil)
