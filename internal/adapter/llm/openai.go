package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"qarag/internal/port"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "baidu/ernie-4.5-300b-a47b"
)

// OpenAIGenerator sends a single-turn chat completion to any
// OpenAI-compatible endpoint. OpenRouter is the default.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

type Options struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
}

func NewOpenAIGenerator(opts Options) (*OpenAIGenerator, error) {
	key := ""
	if opts.APIKeyEnv != "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}, nil
}

var _ port.Generator = (*OpenAIGenerator)(nil)

func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string, params port.GenerationParams) (string, error) {
	model := params.Model
	if model == "" {
		model = g.model
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat completion returned empty content")
	}
	return content, nil
}
