package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type recordedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func newTestServer(t *testing.T, dim int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		atomic.AddInt32(calls, 1)

		var req recordedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model == "" {
			t.Error("request carries no model")
		}

		resp := openai.EmbeddingResponse{Object: "list", Model: openai.EmbeddingModel(req.Model)}
		// Answer in reverse order to check index handling.
		for i := len(req.Input) - 1; i >= 0; i-- {
			v := make([]float32, dim)
			v[0] = float32(len(req.Input[i]))
			resp.Data = append(resp.Data, openai.Embedding{Object: "embedding", Embedding: v, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	var calls int32
	srv := newTestServer(t, 4, &calls)
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	emb, err := NewOpenAIEmbedder(Options{
		BaseURL:   srv.URL,
		APIKeyEnv: "TEST_EMBED_KEY",
		Model:     "custom",
		Dimension: 4,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := emb.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 batched calls, got %d", got)
	}
	if emb.ModelName() != "custom" || emb.Dimension() != 4 {
		t.Errorf("unexpected model info %s/%d", emb.ModelName(), emb.Dimension())
	}
}

func TestOpenAIEmbedderDimensionCheck(t *testing.T) {
	var calls int32
	srv := newTestServer(t, 3, &calls)
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	emb, err := NewOpenAIEmbedder(Options{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY", Model: "custom", Dimension: 8})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := emb.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestOpenAIEmbedderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "test-key")
	emb, err := NewOpenAIEmbedder(Options{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY", Model: "text-embedding-3-small"})
	if err != nil {
		t.Fatal(err)
	}
	if emb.Dimension() != 1536 {
		t.Errorf("expected known dimension 1536, got %d", emb.Dimension())
	}

	if _, err := emb.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	if _, err := NewOpenAIEmbedder(Options{APIKeyEnv: "TEST_EMBED_KEY", Model: "text-embedding-3-small"}); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestOllamaEmbedderNoKey(t *testing.T) {
	emb, err := NewOllamaEmbedder(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if emb.ModelName() != "nomic-embed-text" || emb.Dimension() != 768 {
		t.Errorf("unexpected defaults %s/%d", emb.ModelName(), emb.Dimension())
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	emb := NewHashEmbedder(64)
	texts := []string{"Addis Ababa is the capital of Ethiopia.", "Wolaytta"}

	first, err := emb.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewHashEmbedder(64).Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("hash embedder is not deterministic")
	}

	for i, v := range first {
		if len(v) != 64 {
			t.Errorf("vector %d has dimension %d", i, len(v))
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(norm-1) > 1e-5 {
			t.Errorf("vector %d not normalized: %f", i, norm)
		}
	}
}

func TestHashEmbedderCaseInsensitive(t *testing.T) {
	emb := NewHashEmbedder(32)
	vecs, _ := emb.Embed(context.Background(), []string{"Capital ETHIOPIA", "capital, ethiopia!"})
	if !reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Error("expected identical vectors for same tokens")
	}
	if emb.ModelName() != "hash-bow-32" {
		t.Errorf("unexpected model name %s", emb.ModelName())
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	vecs, err := NewHashEmbedder(8).Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatal("expected zero vector for empty text")
		}
	}
}
