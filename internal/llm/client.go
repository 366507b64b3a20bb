// Package llm defines the minimal client interface the slot filler uses to
// call a generative model, plus concrete Gemini and OpenAI clients and a
// provider factory. Nothing else in the pipeline touches the network.
package llm

import (
	"context"
)

// Client is the generative-model surface the slot filler depends on.
type Client interface {
	// Complete returns the model's text for a plain prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSchema constrains the response to a JSON schema. The raw
	// schema object is provider-agnostic; each client adapts it to its own
	// structured-output mechanism.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt string, schema map[string]interface{}) (string, error)
}
