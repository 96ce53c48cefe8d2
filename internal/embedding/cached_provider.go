package embedding

import (
	"context"
	"fmt"

	"github.com/kyleking/askdb/internal/logging"
)

// VectorStore is the slice of a vector cache CachedProvider needs
type VectorStore interface {
	Get(ctx context.Context, namespace, text string) ([]float32, bool)
	Set(ctx context.Context, namespace, text string, vector []float32) error
}

// CachedProvider serves vectors from a store and embeds only the misses.
// Entries are namespaced by the provider name, which includes the model.
type CachedProvider struct {
	Provider
	store VectorStore
}

// NewCachedProvider wraps provider with store
func NewCachedProvider(provider Provider, store VectorStore) *CachedProvider {
	return &CachedProvider{Provider: provider, store: store}
}

// GenerateEmbedding returns the cached vector for text or embeds it
func (p *CachedProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// GenerateEmbeddings embeds the uncached texts in one batch, preserving order
func (p *CachedProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	namespace := p.GetName()
	vectors := make([][]float32, len(texts))

	var (
		missing []string
		slots   []int
	)

	for i, text := range texts {
		if v, ok := p.store.Get(ctx, namespace, text); ok && p.fits(v) {
			vectors[i] = v
			continue
		}

		missing = append(missing, text)
		slots = append(slots, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	embedded, err := p.Provider.GenerateEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}

	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(embedded))
	}

	for j, v := range embedded {
		vectors[slots[j]] = v

		if err := p.store.Set(ctx, namespace, missing[j], v); err != nil {
			logging.Warnf("failed to cache embedding: %v", err)
		}
	}

	logging.WithFields(map[string]interface{}{
		"provider": namespace,
		"cached":   len(texts) - len(missing),
		"embedded": len(missing),
	}).Debug("embeddings generated")

	return vectors, nil
}

func (p *CachedProvider) fits(v []float32) bool {
	dims := p.GetDimensions()
	return dims <= 0 || len(v) == dims
}
