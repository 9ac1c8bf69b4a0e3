package llm

import "context"

// Generator is the extraction-service contract: a single-shot text completion
// with no conversation state.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
