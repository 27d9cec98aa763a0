package llm

import (
	"fmt"

	"github.com/rcliao/life-assistant/internal/config"
	"github.com/rcliao/life-assistant/internal/model"
)

// NewFromConfig builds the client for the configured provider.
func NewFromConfig(cfg *config.Config) (Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	def := Defaults{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.ModelFor(false),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}
	switch cfg.LLM.Provider {
	case "glm":
		return NewGLMClient(def), nil
	case "anthropic", "claude":
		return NewAnthropicClient(def), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", model.ErrConfigInvalid, cfg.LLM.Provider)
	}
}
