package fal

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "fal"

func factory(_ context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	return NewFalClient(name, ps.APIKey, ps.Model, ps.BaseURL, nil)
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "google/gemini-flash-1.5", BaseURL: "https://fal.run"})
	registry.SetRequiresAPIKey(ProviderName, true, "FAL_KEY")
	registry.SetStreaming(ProviderName, true)
}
