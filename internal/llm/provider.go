package llm

import (
	"context"
	"errors"

	"github.com/claimscope/claimscope/internal/model"
)

// ErrRateLimited marks quota/throughput rejections from a provider.
// Callers distinguish it from plain provider failures with errors.Is.
var ErrRateLimited = errors.New("rate limited")

// Request is a single completion call
type Request struct {
	System      string
	Prompt      string
	Model       string // Overrides the configured default when set
	MaxTokens   int
	Temperature float32
}

// Response is the raw completion output
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider abstracts an LLM backend. Implementations return the model's raw
// text; structural validation of step output belongs to the step executor.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete performs one completion call
	Complete(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIKey:    mc.APIKey,
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	}
}
