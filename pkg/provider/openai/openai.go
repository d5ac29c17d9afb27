package openai

import (
	compat "github.com/renatogalera/worldgen/pkg/provider/openai_compat"
)

// NewOpenAIClient returns a client for api.openai.com.
func NewOpenAIClient(provider, apiKey, model, baseURL string) *compat.Client {
	return compat.NewCompatClient(provider, apiKey, model, baseURL)
}
