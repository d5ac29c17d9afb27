package google

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "google"

func factory(ctx context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	return NewGoogleClient(ctx, name, ps.APIKey, ps.Model, ps.BaseURL)
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "gemini-2.5-flash"})
	registry.SetRequiresAPIKey(ProviderName, true, "GEMINI_API_KEY")
	registry.SetStreaming(ProviderName, true)
}
