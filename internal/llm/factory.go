package llm

import (
	"context"
	"fmt"
	"os"
)

// ProviderConfig selects and configures a concrete client.
type ProviderConfig struct {
	Provider string // "gemini" or "openai"
	APIKey   string
	Model    string
	BaseURL  string // openai-compatible gateways only
}

// NewClient builds a client from resolved provider config. The API key
// falls back to the conventional environment variable per provider.
func NewClient(ctx context.Context, cfg ProviderConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		return NewGeminiClient(ctx, key, cfg.Model)
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIClient(key, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
