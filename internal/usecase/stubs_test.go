package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"qarag/internal/adapter/embedding"
	"qarag/internal/domain"
	"qarag/internal/port"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// countingEmbedder wraps the hash embedder and counts Embed calls.
type countingEmbedder struct {
	*embedding.HashEmbedder
	model string
	calls int32
	texts int32
}

func newCountingEmbedder(model string) *countingEmbedder {
	return &countingEmbedder{HashEmbedder: embedding.NewHashEmbedder(64), model: model}
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	atomic.AddInt32(&e.texts, int32(len(texts)))
	return e.HashEmbedder.Embed(ctx, texts)
}

func (e *countingEmbedder) ModelName() string {
	if e.model != "" {
		return e.model
	}
	return e.HashEmbedder.ModelName()
}

func (e *countingEmbedder) Calls() int {
	return int(atomic.LoadInt32(&e.calls))
}

// gatedEmbedder blocks the first Embed call after hold until released.
// Later calls pass straight through. err fails every call when set.
type gatedEmbedder struct {
	*embedding.HashEmbedder
	pending atomic.Bool
	started chan struct{}
	gate    chan struct{}
	err     error
}

func newGatedEmbedder() *gatedEmbedder {
	return &gatedEmbedder{HashEmbedder: embedding.NewHashEmbedder(64)}
}

func (e *gatedEmbedder) hold() (started <-chan struct{}, release func()) {
	e.started = make(chan struct{})
	e.gate = make(chan struct{})
	e.pending.Store(true)
	return e.started, func() { close(e.gate) }
}

func (e *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.pending.CompareAndSwap(true, false) {
		close(e.started)
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.HashEmbedder.Embed(ctx, texts)
}

type stubGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	params  []port.GenerationParams
	hook    func(ctx context.Context) error
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string, params port.GenerationParams) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, params)
	g.mu.Unlock()

	if g.hook != nil {
		if err := g.hook(ctx); err != nil {
			return "", err
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type translateCall struct {
	Text, From, To string
}

// stubTranslator answers from a fixed table keyed by text.
type stubTranslator struct {
	mu    sync.Mutex
	table map[string]string
	fail  map[string]bool // keyed by "from->to"
	calls []translateCall
}

func (t *stubTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, translateCall{text, from, to})
	if t.fail[from+"->"+to] {
		return "", errors.New("translator unavailable")
	}
	if out, ok := t.table[text]; ok {
		return out, nil
	}
	return "", errors.New("no translation")
}

func (t *stubTranslator) Calls() []translateCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]translateCall(nil), t.calls...)
}

var ethiopiaChunks = []domain.Chunk{
	{Index: 0, Text: "Addis Ababa is the capital of Ethiopia."},
	{Index: 1, Text: "Wolaytta is a zone in southern Ethiopia."},
	{Index: 2, Text: "Coffee ceremonies are common in Ethiopian homes."},
}
