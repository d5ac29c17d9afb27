package anthropic

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "anthropic"

func factory(_ context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	return NewAnthropicClient(name, ps.APIKey, ps.Model, ps.BaseURL)
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "claude-3-5-haiku-latest", BaseURL: "https://api.anthropic.com"})
	registry.SetRequiresAPIKey(ProviderName, true, "ANTHROPIC_API_KEY")
	registry.SetStreaming(ProviderName, true)
}
