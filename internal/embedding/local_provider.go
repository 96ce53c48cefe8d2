package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kyleking/askdb/internal/python"
)

// LocalProvider embeds text with sentence-transformers through the bundled
// embed.py script, run by uv inside projectDir.
type LocalProvider struct {
	config     Config
	uvPath     string
	projectDir string
}

// embeddingResult represents the JSON response from embed.py
type embeddingResult struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
}

// NewLocalProvider creates a provider for an already prepared uv project
func NewLocalProvider(config Config, uvPath, projectDir string) (*LocalProvider, error) {
	if uvPath == "" || projectDir == "" {
		return nil, fmt.Errorf("local embedding provider needs uv and a project directory")
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &LocalProvider{config: config, uvPath: uvPath, projectDir: projectDir}, nil
}

// GenerateEmbedding generates an embedding for the given text
func (p *LocalProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, p.config.Dimensions), nil
	}

	vectors, err := p.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// GenerateEmbeddings runs the script once for all texts
func (p *LocalProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	input, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	cmd := python.RunScript(ctx, p.uvPath, p.projectDir, python.EmbedScript, "--model", p.config.Model, "--stdin")
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("embedding generation timeout after %v", p.config.Timeout)
		}

		return nil, fmt.Errorf("embedding generation failed: %w (stderr: %s)", err, stderr.String())
	}

	var result embeddingResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding result: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = make([]float32, len(emb))
		for j, v := range emb {
			vectors[i][j] = float32(v)
		}
	}

	if err := checkDimensions(p.config.Dimensions, vectors); err != nil {
		return nil, err
	}

	return vectors, nil
}

// GetDimensions returns the dimensionality of embeddings produced by this provider
func (p *LocalProvider) GetDimensions() int {
	return p.config.Dimensions
}

// IsEnabled reports true; availability is checked when the environment is prepared
func (p *LocalProvider) IsEnabled() bool {
	return true
}

// GetName returns the provider name for identification
func (p *LocalProvider) GetName() string {
	return "local:" + p.config.Model
}
