package domain

import "context"

// Completer is the text-completion contract. Callers that can degrade
// (the extraction engine, the QA service) must treat a failed completion
// as an empty string, not a hard error.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}
