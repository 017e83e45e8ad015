package config

import (
	"fmt"

	"github.com/entrhq/pcbuilder/pkg/llm"
	"github.com/entrhq/pcbuilder/pkg/llm/anthropic"
	"github.com/entrhq/pcbuilder/pkg/llm/openai"
)

// BuildProvider creates the LLM provider selected by LLM_PROVIDER, wrapped
// in the configured request rate limit.
func BuildProvider(cfg *Config) (llm.Provider, error) {
	var (
		provider llm.Provider
		err      error
	)

	switch cfg.LLMProvider {
	case ProviderAnthropic:
		provider, err = anthropic.NewProvider(cfg.AnthropicAPIKey, anthropic.WithModel(cfg.LLMModel))
	case ProviderOpenAI:
		opts := []openai.ProviderOption{openai.WithModel(cfg.LLMModel)}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		provider, err = openai.NewProvider(cfg.OpenAIAPIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	if cfg.LLMRequestsPerMin > 0 {
		provider = llm.WithRateLimit(provider, cfg.LLMRequestsPerMin)
	}
	return provider, nil
}
