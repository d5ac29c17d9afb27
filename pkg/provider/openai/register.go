package openai

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "openai"

func factory(_ context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	return NewOpenAIClient(name, ps.APIKey, ps.Model, ps.BaseURL), nil
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"})
	registry.SetRequiresAPIKey(ProviderName, true, "OPENAI_API_KEY")
	registry.SetStreaming(ProviderName, true)
}
