package embedding

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kyleking/askdb/internal/config"
)

// ErrDisabled is returned by providers that cannot embed
var ErrDisabled = errors.New("embedding provider is disabled")

// Provider defines the interface for embedding providers
type Provider interface {
	// GenerateEmbedding generates an embedding for the given text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateEmbeddings embeds texts in one call, preserving order
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// GetDimensions returns the dimensionality of embeddings produced by this provider
	GetDimensions() int

	// IsEnabled returns whether the provider is enabled and ready to use
	IsEnabled() bool

	// GetName returns the provider name for identification
	GetName() string
}

const (
	ProviderLocal  = "local"
	ProviderOllama = "ollama"
)

const defaultTimeout = 60 * time.Second

// Config represents embedding provider configuration
type Config struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	Dimensions int           `json:"dimensions"`
	Enabled    bool          `json:"enabled"`
	BaseURL    string        `json:"base_url"`
	PythonDir  string        `json:"python_dir"`
	Timeout    time.Duration `json:"timeout"`

	CacheDir       string        `json:"cache_dir"`
	CacheMaxSizeMB int           `json:"cache_max_size_mb"`
	CacheTTL       time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns default embedding configuration
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderOllama,
		Model:      "all-minilm",
		Dimensions: 384,
		Enabled:    true,
		BaseURL:    "http://localhost:11434",
		Timeout:    defaultTimeout,
	}
}

// FromAppConfig maps the application's embedding section onto a provider config
func FromAppConfig(cfg config.EmbeddingConfig) Config {
	pythonDir := cfg.PythonDir
	if pythonDir == "" {
		pythonDir = filepath.Join(config.GetConfigDir(), "python")
	}

	// validated by config
	ttl, _ := time.ParseDuration(cfg.CacheTTL)

	out := Config{
		Provider:       strings.ToLower(cfg.Provider),
		Model:          cfg.Model,
		Dimensions:     cfg.Dimensions,
		Enabled:        cfg.Enabled,
		BaseURL:        cfg.BaseURL,
		PythonDir:      config.ExpandPath(pythonDir),
		Timeout:        defaultTimeout,
		CacheMaxSizeMB: cfg.CacheMaxSizeMB,
		CacheTTL:       ttl,
	}

	if cfg.CacheDir != "" {
		out.CacheDir = config.ExpandPath(cfg.CacheDir)
	}

	return out
}

func checkDimensions(expected int, vectors [][]float32) error {
	if expected <= 0 {
		return nil
	}

	for i, v := range vectors {
		if len(v) != expected {
			return fmt.Errorf("dimension mismatch at %d: expected %d, got %d", i, expected, len(v))
		}
	}

	return nil
}

// DisabledProvider is a no-op provider for when embeddings are disabled
type DisabledProvider struct{}

func (p *DisabledProvider) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}

func (p *DisabledProvider) GenerateEmbeddings(context.Context, []string) ([][]float32, error) {
	return nil, ErrDisabled
}

func (p *DisabledProvider) GetDimensions() int { return 0 }
func (p *DisabledProvider) IsEnabled() bool    { return false }
func (p *DisabledProvider) GetName() string    { return "disabled" }
