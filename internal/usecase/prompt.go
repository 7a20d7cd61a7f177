package usecase

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"qarag/internal/domain"
)

//go:embed templates/answer.tmpl
var answerTemplate string

// PromptBuilder renders the generation prompt. Output depends only on
// the chunk texts, their order and the question.
type PromptBuilder struct {
	tmpl *template.Template
}

type promptData struct {
	Context  string
	Question string
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{tmpl: template.Must(template.New("answer").Parse(answerTemplate))}
}

// NewPromptBuilderFromText parses a caller-supplied template using the
// same fields as the built-in one: .Context and .Question.
func NewPromptBuilderFromText(text string) (*PromptBuilder, error) {
	tmpl, err := template.New("answer").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

func (b *PromptBuilder) Build(chunks []domain.ScoredChunk, question string) (string, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}

	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, promptData{
		Context:  strings.Join(texts, "\n\n"),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
