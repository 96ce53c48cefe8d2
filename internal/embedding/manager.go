package embedding

import (
	"context"
	"fmt"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/python"
)

// Manager wraps the configured embedding Provider
type Manager struct {
	provider Provider
}

// NewManager creates a Manager from the given config. A disabled config
// yields a manager backed by DisabledProvider.
func NewManager(ctx context.Context, config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{provider: &DisabledProvider{}}, nil
	}

	provider, err := newProvider(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	if config.CacheDir != "" {
		store, err := cache.NewVectorCache(config.CacheDir, config.CacheMaxSizeMB, config.CacheTTL)
		if err != nil {
			logging.Warnf("embedding cache unavailable: %v", err)
		} else {
			provider = NewCachedProvider(provider, store)
		}
	}

	return &Manager{provider: provider}, nil
}

// NewManagerWithProvider wraps an existing provider
func NewManagerWithProvider(provider Provider) *Manager {
	if provider == nil {
		provider = &DisabledProvider{}
	}

	return &Manager{provider: provider}
}

func newProvider(ctx context.Context, config Config) (Provider, error) {
	switch config.Provider {
	case ProviderOllama:
		return NewOllamaProvider(config), nil
	case ProviderLocal:
		uvPath, err := python.FindUV()
		if err != nil {
			return nil, err
		}

		if err := python.EnsureEnvironment(ctx, uvPath, config.PythonDir); err != nil {
			return nil, err
		}

		return NewLocalProvider(config, uvPath, config.PythonDir)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Provider)
	}
}

// GenerateEmbedding generates an embedding vector for the given text
func (m *Manager) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if !m.IsEnabled() {
		return nil, ErrDisabled
	}

	return m.provider.GenerateEmbedding(ctx, text)
}

// GenerateEmbeddings embeds texts in order
func (m *Manager) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !m.IsEnabled() {
		return nil, ErrDisabled
	}

	return m.provider.GenerateEmbeddings(ctx, texts)
}

// IsEnabled returns whether the manager's provider is enabled
func (m *Manager) IsEnabled() bool {
	return m != nil && m.provider != nil && m.provider.IsEnabled()
}

// Name identifies the active provider
func (m *Manager) Name() string {
	if m == nil || m.provider == nil {
		return "disabled"
	}

	return m.provider.GetName()
}
