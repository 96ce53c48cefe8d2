package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "ASKDB_"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Data      DataConfig      `json:"data"`
	History   HistoryConfig   `json:"history"`
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Security  SecurityConfig  `json:"security"`
	Logging   LoggingConfig   `json:"logging"`
	Debug     DebugConfig     `json:"debug"`
}

// DatabaseConfig describes the business database that questions are answered from
type DatabaseConfig struct {
	Path         string `json:"path"          env:"DB_PATH"          envDefault:"./data/bank_exchange.db"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT" envDefault:"30s"`
	MaxRows      int    `json:"max_rows"      env:"DB_MAX_ROWS"      envDefault:"1000"`
}

// DataConfig points at the reference inputs loaded once at startup
type DataConfig struct {
	DictionaryPath string `json:"dictionary_path" env:"DICTIONARY_PATH" envDefault:"./data/data_dictionary.xlsx"`
	PolicyPath     string `json:"policy_path"     env:"POLICY_PATH"     envDefault:"./data/role_access.xlsx"`
}

// HistoryConfig controls the local answer history
type HistoryConfig struct {
	Enabled bool   `json:"enabled" env:"HISTORY_ENABLED" envDefault:"true"`
	Path    string `json:"path"    env:"HISTORY_PATH"    envDefault:"~/.config/askdb/history.duckdb"`
}

// LLMConfig configures the SQL generation backend
type LLMConfig struct {
	Provider          string   `json:"provider"           env:"LLM_PROVIDER"           envDefault:"ollama"` // none, openai, anthropic, ollama, local
	FallbackProviders []string `json:"fallback_providers" env:"LLM_FALLBACK_PROVIDERS" envSeparator:","`
	Model             string   `json:"model"              env:"LLM_MODEL"              envDefault:"sqlcoder"`
	APIKey            string   `json:"api_key,omitempty"  env:"LLM_API_KEY"`
	BaseURL           string   `json:"base_url"           env:"LLM_BASE_URL"`
	Timeout           string   `json:"timeout"            env:"LLM_TIMEOUT"            envDefault:"2m"`
	RetryAttempts     int      `json:"retry_attempts"     env:"LLM_RETRY_ATTEMPTS"     envDefault:"1"`
	RetryDelay        string   `json:"retry_delay"        env:"LLM_RETRY_DELAY"        envDefault:"2s"`
	Concurrency       int      `json:"concurrency"        env:"LLM_CONCURRENCY"        envDefault:"2"` // generator calls in flight per question
}

// EmbeddingConfig configures the embedding backend used by the schema context index
type EmbeddingConfig struct {
	Enabled    bool   `json:"enabled"    env:"EMBEDDING_ENABLED"    envDefault:"true"`
	Provider   string `json:"provider"   env:"EMBEDDING_PROVIDER"   envDefault:"ollama"` // local, ollama
	Model      string `json:"model"      env:"EMBEDDING_MODEL"      envDefault:"all-minilm"`
	Dimensions int    `json:"dimensions" env:"EMBEDDING_DIMENSIONS" envDefault:"384"`
	BaseURL    string `json:"base_url"   env:"EMBEDDING_BASE_URL"   envDefault:"http://localhost:11434"`
	PythonDir  string `json:"python_dir" env:"EMBEDDING_PYTHON_DIR"` // local provider only, defaults to <config dir>/python

	// CacheDir holds vectors between runs; empty disables the cache
	CacheDir       string `json:"cache_dir"         env:"EMBEDDING_CACHE_DIR"         envDefault:"~/.config/askdb/embeddings"`
	CacheMaxSizeMB int    `json:"cache_max_size_mb" env:"EMBEDDING_CACHE_MAX_SIZE_MB" envDefault:"50"`
	CacheTTL       string `json:"cache_ttl"         env:"EMBEDDING_CACHE_TTL"         envDefault:"720h"`
}

// RetrievalConfig configures schema context retrieval
type RetrievalConfig struct {
	TopK int `json:"top_k" env:"RETRIEVAL_TOP_K" envDefault:"5"`
}

// SecurityConfig tunes the authorization and validation stages
type SecurityConfig struct {
	StrictParse         bool `json:"strict_parse"          env:"STRICT_PARSE"          envDefault:"true"`
	LegacyGenericSelect bool `json:"legacy_generic_select" env:"LEGACY_GENERIC_SELECT" envDefault:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LOG_LEVEL"      envDefault:"warn"`                     // debug, info, warn, error
	Format    string `json:"format"     env:"LOG_FORMAT"     envDefault:"text"`                     // text, json
	Output    string `json:"output"     env:"LOG_OUTPUT"     envDefault:"stderr"`                   // stdout, stderr, file
	File      string `json:"file"       env:"LOG_FILE"       envDefault:"~/.config/askdb/askdb.log"` // log file path when output is file
	AddSource bool   `json:"add_source" env:"LOG_ADD_SOURCE" envDefault:"false"`
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" env:"VERBOSE" envDefault:"false"`
}

// DefaultConfig returns the configuration produced by the envDefault tags alone
func DefaultConfig() *Config {
	cfg := &Config{}
	// Parsing against an empty environment only applies defaults and cannot fail
	_ = env.ParseWithOptions(cfg, env.Options{
		Prefix:      envPrefix,
		Environment: map[string]string{},
	})

	return cfg
}

// LoadConfig loads configuration from .env, file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence, lowest first: defaults, config file, environment (including .env), flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvironment(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadDotEnv reads ASKDB_ENV_FILE (default .env) when present. Variables
// already set in the process environment win.
func loadDotEnv() error {
	path := os.Getenv(envPrefix + "ENV_FILE")
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		return nil
	}

	return godotenv.Load(path)
}

// loadConfigFromFile overlays a JSON file onto config. Keys absent from the file keep their value.
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyEnvironment copies every value the environment sets explicitly. envDefault
// would otherwise clobber values that came from the config file.
func applyEnvironment(config *Config) error {
	fromEnv := &Config{}
	if err := env.ParseWithOptions(fromEnv, env.Options{Prefix: envPrefix}); err != nil {
		return err
	}

	mergeChanged(config, fromEnv, DefaultConfig())

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "db":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "dictionary":
			if str, ok := value.(string); ok && str != "" {
				config.Data.DictionaryPath = str
			}
		case "policy":
			if str, ok := value.(string); ok && str != "" {
				config.Data.PolicyPath = str
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Provider = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "top-k":
			switch n := value.(type) {
			case int:
				if n > 0 {
					config.Retrieval.TopK = n
				}
			case int64:
				if n > 0 {
					config.Retrieval.TopK = int(n)
				}
			}
		case "verbose":
			if b, ok := value.(bool); ok && b {
				config.Debug.Verbose = true
			}
		case "no-history":
			if b, ok := value.(bool); ok && b {
				config.History.Enabled = false
			}
		default:
			return fmt.Errorf("unknown override: %s", key)
		}
	}

	return nil
}

// mergeChanged copies into target every leaf of source that differs from base
func mergeChanged(target, source, base *Config) {
	var mergeValues func(t, s, b reflect.Value)
	mergeValues = func(t, s, b reflect.Value) {
		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i), b.Field(i))
			}

			return
		}

		if !reflect.DeepEqual(s.Interface(), b.Interface()) {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem(), reflect.ValueOf(base).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	durations := map[string]string{
		"database query timeout": config.Database.QueryTimeout,
		"llm timeout":            config.LLM.Timeout,
		"llm retry delay":        config.LLM.RetryDelay,
		"embedding cache ttl":    config.Embedding.CacheTTL,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	validProviders := map[string]bool{
		"none": true, "openai": true, "anthropic": true, "ollama": true, "local": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
	}

	for _, name := range config.LLM.FallbackProviders {
		if !validProviders[strings.ToLower(name)] {
			return fmt.Errorf("unsupported llm fallback provider: %s", name)
		}
	}

	if config.LLM.Concurrency != 1 && config.LLM.Concurrency != 2 {
		return fmt.Errorf("llm concurrency must be 1 or 2: %d", config.LLM.Concurrency)
	}

	if config.LLM.RetryAttempts < 0 {
		return fmt.Errorf("llm retry attempts must not be negative: %d", config.LLM.RetryAttempts)
	}

	if config.Embedding.Enabled {
		switch strings.ToLower(config.Embedding.Provider) {
		case "local", "ollama":
		default:
			return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
		}

		if config.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding dimensions must be positive: %d", config.Embedding.Dimensions)
		}
	}

	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive: %d", config.Retrieval.TopK)
	}

	if config.Database.MaxRows <= 0 {
		return fmt.Errorf("database max rows must be positive: %d", config.Database.MaxRows)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Timeout returns the parsed statement timeout
func (c DatabaseConfig) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.QueryTimeout)
	return d
}

// RequestTimeout returns the parsed per-call generation timeout
func (c LLMConfig) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// RetryBackoff returns the parsed delay between generation retries
func (c LLMConfig) RetryBackoff() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(envPrefix + "CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = ExpandPath(c.Database.Path)
	c.Data.DictionaryPath = ExpandPath(c.Data.DictionaryPath)
	c.Data.PolicyPath = ExpandPath(c.Data.PolicyPath)
	c.History.Path = ExpandPath(c.History.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
	c.Embedding.PythonDir = ExpandPath(c.Embedding.PythonDir)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/askdb"
	}

	return filepath.Join(homeDir, ".config", "askdb")
}

// EnsureDirectories creates the directories the configuration writes into
func (c *Config) EnsureDirectories() error {
	dirs := []string{}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}

	if strings.EqualFold(c.Logging.Output, "file") {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
