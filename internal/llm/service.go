package llm

import (
	"context"
	"time"

	"github.com/kyleking/askdb/internal/dictionary"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/types"
)

// Service turns a question into one SQL statement
type Service interface {
	GenerateSQL(ctx context.Context, req *Request) (*Response, error)
	Configure(config Config) error
}

// Config represents LLM service configuration
type Config struct {
	Provider string        `json:"provider"` // openai, anthropic, ollama, local
	Model    string        `json:"model"`
	APIKey   string        `json:"api_key,omitempty"`
	BaseURL  string        `json:"base_url,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Request carries everything a generator may use. Access limits the schema
// the prompt reveals; Context is optional retrieved schema text.
type Request struct {
	Question   string
	Access     policy.Access
	Catalog    *types.Catalog
	Dictionary *dictionary.Dictionary
	Context    string
}

// WithContext returns a copy of the request carrying context text
func (r *Request) WithContext(text string) *Request {
	cp := *r
	cp.Context = text

	return &cp
}

// Response is a single statement terminated by ';'
type Response struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Fallback bool   `json:"fallback"`
}

// Provider constants for different LLM providers
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
	ProviderOllama    = "ollama"
	ProviderFallback  = "fallback"
)

// Model constants for common models
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelClaude    = "claude-3-5-haiku-latest"
	ModelSQLCoder  = "sqlcoder"
)
