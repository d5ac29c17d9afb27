package openrouter

import (
	"context"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	compat "github.com/renatogalera/worldgen/pkg/provider/openai_compat"
	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

const ProviderName = "openrouter"

func factory(_ context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error) {
	// OpenRouter is OpenAI-compatible and accepts the same model ids the
	// fal any-llm route exposes.
	return compat.NewCompatClient(name, ps.APIKey, ps.Model, ps.BaseURL), nil
}

func init() {
	registry.Register(ProviderName, factory)
	registry.RegisterDefaults(ProviderName, config.ProviderSettings{Model: "google/gemini-flash-1.5", BaseURL: "https://openrouter.ai/api/v1"})
	registry.SetRequiresAPIKey(ProviderName, true, "OPENROUTER_API_KEY")
	registry.SetStreaming(ProviderName, true)
}
