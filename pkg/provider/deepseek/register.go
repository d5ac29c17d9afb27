package deepseek

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "deepseek"

func factory(_ context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	return NewDeepseekClient(name, ps.APIKey, ps.Model, ps.BaseURL)
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "deepseek-chat", BaseURL: "https://api.deepseek.com/v1"})
	registry.SetRequiresAPIKey(ProviderName, true, "DEEPSEEK_API_KEY")
	registry.SetStreaming(ProviderName, true)
}
