package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
)

// Factory constructs an AI client for a provider using the given settings.
type Factory func(ctx context.Context, name string, ps config.ProviderSettings) (ai.AIClient, error)

// Info describes a registered provider.
type Info struct {
	Name           string
	Defaults       config.ProviderSettings
	RequiresAPIKey bool
	APIKeyEnv      string
	Streaming      bool
}

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	defaults  = map[string]config.ProviderSettings{}
	required  = map[string]bool{}
	keyEnv    = map[string]string{}
	streaming = map[string]bool{}
)

// Register adds a provider factory under the given name.
func Register(name string, f Factory) {
	mu.Lock()
	factories[name] = f
	mu.Unlock()
}

// Get returns the factory for name if registered.
func Get(name string) (Factory, bool) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	return f, ok
}

func Has(name string) bool {
	_, ok := Get(name)
	return ok
}

// Names returns the registered provider names, sorted.
func Names() []string {
	mu.RLock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	mu.RUnlock()
	sort.Strings(out)
	return out
}

func RegisterDefaults(name string, ps config.ProviderSettings) {
	mu.Lock()
	defaults[name] = ps
	mu.Unlock()
}

// SetRequiresAPIKey marks whether a provider requires an API key and which
// environment variable may carry it.
func SetRequiresAPIKey(name string, req bool, env string) {
	mu.Lock()
	required[name] = req
	keyEnv[name] = env
	mu.Unlock()
}

// SetStreaming records that the provider's clients implement ai.StreamingAIClient.
func SetStreaming(name string, s bool) {
	mu.Lock()
	streaming[name] = s
	mu.Unlock()
}

func GetDefaults(name string) (config.ProviderSettings, bool) {
	mu.RLock()
	d, ok := defaults[name]
	mu.RUnlock()
	return d, ok
}

func RequiresAPIKey(name string) bool {
	mu.RLock()
	r := required[name]
	mu.RUnlock()
	return r
}

// APIKeyEnv returns the environment variable consulted for name's API key.
func APIKeyEnv(name string) string {
	mu.RLock()
	e := keyEnv[name]
	mu.RUnlock()
	return e
}

// Describe returns Info for every registered provider, sorted by name.
func Describe() []Info {
	names := Names()
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Info, 0, len(names))
	for _, n := range names {
		out = append(out, Info{
			Name:           n,
			Defaults:       defaults[n],
			RequiresAPIKey: required[n],
			APIKeyEnv:      keyEnv[n],
			Streaming:      streaming[n],
		})
	}
	return out
}

// Build resolves settings for name (config over registered defaults, API key
// from flag, environment or config) and constructs the client.
func Build(ctx context.Context, cfg *config.Config, name, apiKeyFlag string) (ai.AIClient, error) {
	f, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, Names())
	}
	dft, _ := GetDefaults(name)
	ps := cfg.GetProviderSettings(name, dft)
	if RequiresAPIKey(name) {
		key, err := config.ResolveAPIKey(apiKeyFlag, APIKeyEnv(name), ps.APIKey, name)
		if err != nil {
			return nil, err
		}
		ps.APIKey = key
	}
	client, err := f(ctx, name, ps)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}
	return client, nil
}
