package port

import "context"

// GenerationParams are fixed decoding parameters; they come from config,
// never from the request.
type GenerationParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator is the answer-generation service.
type Generator interface {
	// Complete makes a single attempt; callers do not expect retries.
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Translator translates text between language tags.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
