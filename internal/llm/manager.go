package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kyleking/askdb/internal/logging"
)

// Manager handles multiple LLM providers with fallback strategies. It is
// read-only after setup and safe for concurrent GenerateSQL calls.
type Manager struct {
	providers map[string]Service
	fallback  Service
	config    ManagerConfig
}

// ManagerConfig configures the LLM manager behavior
type ManagerConfig struct {
	DefaultProvider   string        `json:"default_provider"`
	FallbackProviders []string      `json:"fallback_providers"`
	RetryAttempts     int           `json:"retry_attempts"`
	RetryDelay        time.Duration `json:"retry_delay"`
	Timeout           time.Duration `json:"timeout"`
	EnableFallback    bool          `json:"enable_fallback"`
}

// DefaultManagerConfig returns a sensible default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultProvider: ProviderOllama,
		RetryAttempts:   1,
		RetryDelay:      2 * time.Second,
		Timeout:         2 * time.Minute,
		EnableFallback:  true,
	}
}

// NewManager creates a new LLM manager with the given configuration
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		providers: make(map[string]Service),
		fallback:  NewFallbackService(),
		config:    config,
	}
}

// RegisterProvider registers a new LLM provider
func (m *Manager) RegisterProvider(name string, service Service) error {
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	if service == nil {
		return errors.New("service cannot be nil")
	}

	m.providers[name] = service

	return nil
}

// Configure configures a specific provider
func (m *Manager) Configure(config Config) error {
	provider, exists := m.providers[config.Provider]
	if !exists {
		return fmt.Errorf("provider %s not registered", config.Provider)
	}

	return provider.Configure(config)
}

// GenerateSQL tries the default provider, then each fallback provider, then
// the deterministic fallback when enabled
func (m *Manager) GenerateSQL(ctx context.Context, req *Request) (*Response, error) {
	order := make([]string, 0, 1+len(m.config.FallbackProviders))
	if m.config.DefaultProvider != "" {
		order = append(order, m.config.DefaultProvider)
	}

	order = append(order, m.config.FallbackProviders...)

	for _, name := range order {
		provider, exists := m.providers[name]
		if !exists {
			continue
		}

		response, err := m.tryProvider(ctx, provider, req)
		if err == nil {
			return response, nil
		}

		logging.WithField("provider", name).WithError(err).Warn("SQL generation failed")

		if ctx.Err() != nil {
			break
		}
	}

	if m.config.EnableFallback {
		logging.Debugf("using deterministic fallback for SQL generation")
		return m.fallback.GenerateSQL(ctx, req)
	}

	return nil, errors.New("all LLM providers failed and fallback is disabled")
}

// tryProvider calls provider with a per-attempt timeout and retries
func (m *Manager) tryProvider(ctx context.Context, provider Service, req *Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.config.RetryDelay):
			}
		}

		response, err := m.call(ctx, provider, req)
		if err == nil {
			return response, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("provider failed after %d attempts: %w", m.config.RetryAttempts+1, lastErr)
}

func (m *Manager) call(ctx context.Context, provider Service, req *Request) (*Response, error) {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	return provider.GenerateSQL(ctx, req)
}

// GetAvailableProviders returns the registered provider names, sorted
func (m *Manager) GetAvailableProviders() []string {
	providers := make([]string, 0, len(m.providers))
	for name := range m.providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers
}

// IsProviderRegistered checks if a provider is registered
func (m *Manager) IsProviderRegistered(name string) bool {
	_, exists := m.providers[name]
	return exists
}
