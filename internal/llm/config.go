package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/logging"
)

// defaultModels is used when the configured model belongs to another provider
var defaultModels = map[string]string{
	ProviderOpenAI:    ModelGPT4oMini,
	ProviderAnthropic: ModelClaude,
	ProviderOllama:    ModelSQLCoder,
	ProviderLocal:     ModelSQLCoder,
}

// ClientConfig resolves the client settings for one provider. The primary
// provider uses the configured model, key and URL; fallback providers read
// their credentials from the provider's conventional environment variables.
func ClientConfig(provider string, cfg config.LLMConfig, primary bool) Config {
	provider = strings.ToLower(provider)

	c := Config{
		Provider: provider,
		Model:    defaultModels[provider],
		Timeout:  cfg.RequestTimeout(),
	}

	if primary {
		if cfg.Model != "" {
			c.Model = cfg.Model
		}

		c.APIKey = cfg.APIKey
		c.BaseURL = cfg.BaseURL
	}

	switch provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case ProviderAnthropic:
		if c.APIKey == "" {
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case ProviderOllama, ProviderLocal:
		if c.BaseURL == "" {
			c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	return c
}

// NewManagerFromConfig builds the generator chain described by cfg. Providers
// that cannot be configured (for example a missing API key) are skipped with
// a warning; the deterministic fallback is always enabled.
func NewManagerFromConfig(cfg config.LLMConfig) (*Manager, error) {
	manager := NewManager(ManagerConfig{
		DefaultProvider:   strings.ToLower(cfg.Provider),
		FallbackProviders: lower(cfg.FallbackProviders),
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryBackoff(),
		Timeout:           cfg.RequestTimeout(),
		EnableFallback:    true,
	})

	names := append([]string{cfg.Provider}, cfg.FallbackProviders...)
	for i, name := range names {
		name = strings.ToLower(name)
		if name == "" || name == ProviderNone || manager.IsProviderRegistered(name) {
			continue
		}

		client := NewClient(Config{})
		if err := client.Configure(ClientConfig(name, cfg, i == 0)); err != nil {
			logging.Warnf("skipping LLM provider %s: %v", name, err)
			continue
		}

		if err := manager.RegisterProvider(name, client); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", name, err)
		}
	}

	return manager, nil
}

func lower(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}

	return out
}
