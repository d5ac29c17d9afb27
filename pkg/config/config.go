package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProvider = "fal"
	DefaultLanguage = "en"
	DefaultEndpoint = "http://127.0.0.1:8787/api/llm"
	DefaultAddr     = "127.0.0.1:8787"
	DefaultTimeout  = 120
)

// ErrMissingAPIKey is returned when a provider that needs a key has none.
var ErrMissingAPIKey = errors.New("API key is required")

// Languages the world generator writes in.
var Languages = []string{"en", "es", "fr", "de", "pt", "tr"}

// ProviderSettings holds credentials and routing for a provider.
type ProviderSettings struct {
	APIKey  string `yaml:"apiKey,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"baseURL,omitempty" validate:"omitempty,url"`
}

type ServerSettings struct {
	Addr string `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
}

type Config struct {
	Provider  string                      `yaml:"provider,omitempty" validate:"required"`
	Providers map[string]ProviderSettings `yaml:"providers,omitempty" validate:"dive"`

	Language string `yaml:"language,omitempty" validate:"omitempty,oneof=en es fr de pt tr"`
	// Endpoint is the LLM route the generate command talks to.
	Endpoint string         `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	Server   ServerSettings `yaml:"server,omitempty"`

	StorePath      string `yaml:"storePath,omitempty"`
	LogLevel       string `yaml:"logLevel,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	LogFile        string `yaml:"logFile,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty" validate:"gte=0,lte=3600"`

	// Optional overrides of the built-in prompt templates.
	SystemPrompt   string `yaml:"systemPrompt,omitempty"`
	PromptTemplate string `yaml:"promptTemplate,omitempty"`
}

// Dir returns ~/.config/<binary>.
func Dir() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to determine executable path: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", filepath.Base(exePath)), nil
}

// Default returns the configuration written on first run.
func Default(dir string) *Config {
	return &Config{
		Provider:       DefaultProvider,
		Providers:      map[string]ProviderSettings{},
		Language:       DefaultLanguage,
		Endpoint:       DefaultEndpoint,
		Server:         ServerSettings{Addr: DefaultAddr},
		StorePath:      filepath.Join(dir, "worlds.yaml"),
		LogLevel:       "info",
		TimeoutSeconds: DefaultTimeout,
	}
}

func LoadOrCreateConfig() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadOrCreateConfigAt(filepath.Join(dir, "config.yaml"))
}

// LoadOrCreateConfigAt reads the config at path, writing defaults there
// first when the file does not exist.
func LoadOrCreateConfigAt(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultCfg := Default(configDir)
		if err := saveConfig(configPath, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultCfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default(configDir)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ResolveAPIKey picks the first non-blank key from flag, environment and
// config, in that order.
func ResolveAPIKey(flagVal, envVar, configVal, provider string) (string, error) {
	if strings.TrimSpace(flagVal) != "" {
		return strings.TrimSpace(flagVal), nil
	}
	if envVar != "" {
		if envVal := os.Getenv(envVar); strings.TrimSpace(envVal) != "" {
			return strings.TrimSpace(envVal), nil
		}
	}
	if strings.TrimSpace(configVal) != "" {
		return strings.TrimSpace(configVal), nil
	}
	return "", fmt.Errorf("%s %w: provide it via flag, %s environment variable, or config", provider, ErrMissingAPIKey, envVar)
}

func (cfg *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// GetProviderSettings merges the configured settings for name over defaults.
// Blank configured fields keep the default value.
func (cfg *Config) GetProviderSettings(name string, defaults ProviderSettings) ProviderSettings {
	ps := defaults
	if cfg.Providers == nil {
		return ps
	}
	if c, ok := cfg.Providers[name]; ok {
		if strings.TrimSpace(c.APIKey) != "" {
			ps.APIKey = c.APIKey
		}
		if strings.TrimSpace(c.Model) != "" {
			ps.Model = c.Model
		}
		if strings.TrimSpace(c.BaseURL) != "" {
			ps.BaseURL = c.BaseURL
		}
	}
	return ps
}
