package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kyleking/askdb/internal/llm"
)

// Keys understood by MockGenerator.Calls
const (
	CallWithContext    = "with_context"
	CallWithoutContext = "without_context"
)

// MockGenerator implements llm.Service with separate scripted answers for
// context-augmented and plain requests
type MockGenerator struct {
	mu sync.RWMutex

	withContext    string
	withoutContext string
	errors         map[string]error
	callCounts     map[string]int
	requests       []*llm.Request
}

// GeneratorOption is a functional option for configuring MockGenerator
type GeneratorOption func(*MockGenerator)

// WithSQL answers every request with sql
func WithSQL(sql string) GeneratorOption {
	return func(m *MockGenerator) {
		m.withContext = sql
		m.withoutContext = sql
	}
}

// WithContextSQL sets the answer for requests carrying retrieved context
func WithContextSQL(sql string) GeneratorOption {
	return func(m *MockGenerator) {
		m.withContext = sql
	}
}

// WithPlainSQL sets the answer for requests without retrieved context
func WithPlainSQL(sql string) GeneratorOption {
	return func(m *MockGenerator) {
		m.withoutContext = sql
	}
}

// WithGenerateError fails the calls identified by key
func WithGenerateError(key string, err error) GeneratorOption {
	return func(m *MockGenerator) {
		m.errors[key] = err
	}
}

// NewMockGenerator creates a mock generator with the given options
func NewMockGenerator(opts ...GeneratorOption) *MockGenerator {
	mock := &MockGenerator{
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// GenerateSQL returns the scripted statement for the request's kind
func (m *MockGenerator) GenerateSQL(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	key := CallWithoutContext
	if strings.TrimSpace(req.Context) != "" {
		key = CallWithContext
	}

	m.mu.Lock()
	m.callCounts[key]++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.errors[key]; ok {
		return nil, err
	}

	sql := m.withoutContext
	if key == CallWithContext {
		sql = m.withContext
	}

	if sql == "" {
		return nil, fmt.Errorf("no scripted SQL for %s request", key)
	}

	return &llm.Response{SQL: sql, Provider: "mock"}, nil
}

// Configure accepts any configuration
func (m *MockGenerator) Configure(llm.Config) error {
	return nil
}

// Calls returns how many requests of the given kind were served
func (m *MockGenerator) Calls(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[key]
}

// Requests returns the received requests in arrival order
func (m *MockGenerator) Requests() []*llm.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*llm.Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// MockEmbedder implements schemaindex.Embedder with a bag-of-words vector
// over a fixed vocabulary, so similar texts get similar vectors
type MockEmbedder struct {
	vocabulary []string
	err        error
	disabled   bool
}

// NewMockEmbedder creates an embedder over vocabulary
func NewMockEmbedder(vocabulary ...string) *MockEmbedder {
	return &MockEmbedder{vocabulary: vocabulary}
}

// Failing makes every embedding call return err
func (m *MockEmbedder) Failing(err error) *MockEmbedder {
	m.err = err
	return m
}

// Disabled makes IsEnabled report false
func (m *MockEmbedder) Disabled() *MockEmbedder {
	m.disabled = true
	return m
}

// GenerateEmbedding counts vocabulary words in text
func (m *MockEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}

	lower := strings.ToLower(text)
	vector := make([]float32, len(m.vocabulary))

	for i, word := range m.vocabulary {
		vector[i] = float32(strings.Count(lower, strings.ToLower(word)))
	}

	return vector, nil
}

// GenerateEmbeddings embeds each text in order
func (m *MockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for _, text := range texts {
		vector, err := m.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}

		out = append(out, vector)
	}

	return out, nil
}

// IsEnabled reports whether the embedder should be used
func (m *MockEmbedder) IsEnabled() bool {
	return !m.disabled
}
