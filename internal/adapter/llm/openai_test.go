package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qarag/internal/port"
)

func TestOpenAIGeneratorComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer gen-key" {
			t.Errorf("unexpected Authorization %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Addis Ababa  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEN_KEY", "gen-key")
	g, err := NewOpenAIGenerator(Options{BaseURL: srv.URL, APIKeyEnv: "TEST_GEN_KEY"})
	if err != nil {
		t.Fatal(err)
	}

	answer, err := g.Complete(context.Background(), "QUESTION: capital?", port.GenerationParams{Temperature: 0.7, MaxTokens: 512})
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Addis Ababa" {
		t.Errorf("expected trimmed answer, got %q", answer)
	}
	if got["model"] != DefaultModel {
		t.Errorf("expected default model, got %v", got["model"])
	}
	if got["max_tokens"] != float64(512) {
		t.Errorf("expected max_tokens 512, got %v", got["max_tokens"])
	}
}

func TestOpenAIGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEN_KEY", "gen-key")
	g, err := NewOpenAIGenerator(Options{BaseURL: srv.URL, APIKeyEnv: "TEST_GEN_KEY", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Complete(context.Background(), "p", port.GenerationParams{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEN_KEY", "gen-key")
	g, _ := NewOpenAIGenerator(Options{BaseURL: srv.URL, APIKeyEnv: "TEST_GEN_KEY"})
	if _, err := g.Complete(context.Background(), "p", port.GenerationParams{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIGeneratorRequiresKey(t *testing.T) {
	t.Setenv("TEST_GEN_KEY", "")
	if _, err := NewOpenAIGenerator(Options{APIKeyEnv: "TEST_GEN_KEY"}); err == nil {
		t.Fatal("expected missing key error")
	}
}
