package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names the backend family that serves a model
type Provider string

const (
	// ProviderOpenAI covers any OpenAI-compatible chat endpoint (OpenAI, HF router, vLLM, Ollama)
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is Google's Gemini API
	ProviderGemini Provider = "gemini"
)

// ModelConfig is one entry of the model registry
type ModelConfig struct {
	Name          string   `json:"name" yaml:"name"`
	MaxTokens     int      `json:"max_tokens" yaml:"max_tokens"`
	Temperature   float64  `json:"temperature" yaml:"temperature"`
	ContextLength int      `json:"context_length" yaml:"context_length"`
	Provider      Provider `json:"provider" yaml:"provider"`
}

// ProviderConfig holds credentials and endpoint for a provider
type ProviderConfig struct {
	APIKey  string `json:"-" yaml:"-"` // Never serialize
	BaseURL string `json:"baseUrl" yaml:"base_url"`
}

// AIConfig holds all model-related configuration
type AIConfig struct {
	OpenAI ProviderConfig `json:"openai"`
	Gemini ProviderConfig `json:"gemini"`

	DefaultModel string                 `json:"defaultModel"`
	Models       map[string]ModelConfig `json:"models"`

	// EmbeddingModel is used by the embedding similarity scorer
	EmbeddingModel string `json:"embeddingModel"`

	Timeout                  time.Duration `json:"timeout"`
	MaxConcurrentGenerations int           `json:"maxConcurrentGenerations"`
}

// DefaultAIConfig returns the built-in registry with credentials from the environment
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		OpenAI: ProviderConfig{
			APIKey:  firstEnv("LLM_API_KEY", "HUGGINGFACE_TOKEN", "OPENAI_API_KEY"),
			BaseURL: getEnv("LLM_BASE_URL", "https://router.huggingface.co/v1"),
		},
		Gemini: ProviderConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		DefaultModel: getEnv("DEFAULT_MODEL", "llama-3.1-8b"),
		Models: map[string]ModelConfig{
			"llama-3.1-8b": {
				Name:          "meta-llama/Llama-3.1-8B-Instruct",
				MaxTokens:     512,
				Temperature:   0.7,
				ContextLength: 4096,
				Provider:      ProviderOpenAI,
			},
			"llama-3.2-1b": {
				Name:          "meta-llama/Llama-3.2-1B-Instruct",
				MaxTokens:     512,
				Temperature:   0.7,
				ContextLength: 2048,
				Provider:      ProviderOpenAI,
			},
			"llama-2-70b": {
				Name:          "meta-llama/Llama-2-70b-chat-hf",
				MaxTokens:     2000,
				Temperature:   0.7,
				ContextLength: 4096,
				Provider:      ProviderOpenAI,
			},
			"gemini-2.0-flash": {
				Name:          "gemini-2.0-flash",
				MaxTokens:     2000,
				Temperature:   0.7,
				ContextLength: 1048576,
				Provider:      ProviderGemini,
			},
		},
		EmbeddingModel:           getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		Timeout:                  getEnvDuration("AI_TIMEOUT", 120*time.Second),
		MaxConcurrentGenerations: getEnvInt("AI_MAX_CONCURRENT", 1),
	}
}

// modelsFile is the on-disk shape of MODELS_FILE
type modelsFile struct {
	DefaultModel string                 `yaml:"default_model"`
	Models       map[string]ModelConfig `yaml:"models"`
}

// LoadModelsFile merges registry entries from a YAML file over the defaults.
// JSON is accepted too since it is a subset of YAML.
func (c *AIConfig) LoadModelsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read models file: %w", err)
	}
	var file modelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse models file %s: %w", path, err)
	}
	for key, mc := range file.Models {
		if mc.Name == "" {
			return fmt.Errorf("models file %s: model %q has no name", path, key)
		}
		if mc.Provider == "" {
			mc.Provider = ProviderOpenAI
		}
		c.Models[key] = mc
	}
	if file.DefaultModel != "" {
		c.DefaultModel = file.DefaultModel
	}
	if _, ok := c.Models[c.DefaultModel]; !ok {
		return fmt.Errorf("default model %q is not in the registry", c.DefaultModel)
	}
	return nil
}

// Lookup returns the registry entry for key
func (c *AIConfig) Lookup(key string) (ModelConfig, bool) {
	mc, ok := c.Models[key]
	return mc, ok
}

// Registry returns a copy of the model registry
func (c *AIConfig) Registry() map[string]ModelConfig {
	out := make(map[string]ModelConfig, len(c.Models))
	for k, v := range c.Models {
		out[k] = v
	}
	return out
}

// IsEnabled returns true if the provider has credentials configured
func (c *AIConfig) IsEnabled(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	default:
		return c.OpenAI.APIKey != ""
	}
}
