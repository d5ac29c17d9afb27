package ollama

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "ollama"

func factory(_ context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	return NewOllamaClient(name, ps.BaseURL, ps.Model)
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "llama3.1", BaseURL: "http://localhost:11434"})
	registry.SetRequiresAPIKey(ProviderName, false, "")
	registry.SetStreaming(ProviderName, true)
}
